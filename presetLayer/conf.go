package presetLayer

import (
	"github.com/e1732a364fed/blinkpipe/utils"
)

// Conf is one [[presets]] entry:
//
//	[[presets]]
//	name = "obfs-tls1.2-ticket"
//	params = { sni = "www.bing.com" }
type Conf struct {
	Name   string         `toml:"name"`
	Params map[string]any `toml:"params,omitempty"`
}

// String returns the string param key, or def if it is absent.
func (c *Conf) String(key, def string) (string, error) {
	v, ok := c.Params[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", utils.ErrInErr{ErrDesc: "param must be a string", ErrDetail: utils.ErrWrongParameter, Data: key}
	}
	return s, nil
}

// Int returns the integer param key, or def if it is absent. toml gives int64.
func (c *Conf) Int(key string, def int) (int, error) {
	v, ok := c.Params[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	}
	return 0, utils.ErrInErr{ErrDesc: "param must be an integer", ErrDetail: utils.ErrWrongParameter, Data: key}
}
