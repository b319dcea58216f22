package presetLayer

import (
	"fmt"
	"strings"

	"github.com/e1732a364fed/blinkpipe/netLayer"
	"github.com/e1732a364fed/blinkpipe/utils"
	"go.uber.org/zap"
)

var creatorMap = make(map[string]Creator)

// Env is what a preset may know about the connection it is created for.
type Env struct {
	IsClient bool

	// Target is where the client wants to go. Client side only; may be nil.
	Target *netLayer.Addr

	// OnTarget is called by a server side preset that learned the target from the stream.
	// May be nil.
	OnTarget func(netLayer.Addr) error
}

type Creator interface {
	NewPreset(conf *Conf, env Env) (Preset, error)
}

// Validator is implemented by creators that can check params without a connection.
type Validator interface {
	Validate(conf *Conf) error
}

// Every package implementing a preset must register it with this function, in its init.
func RegisterCreator(name string, c Creator) {
	creatorMap[name] = c
}

// AllNames returns the names of the registered presets, sorted.
func AllNames() []string {
	return utils.GetMapSortedKeySlice(creatorMap)
}

func PrintAllNames() {
	fmt.Printf("===============================\nSupported presets:\n")
	for _, v := range AllNames() {
		fmt.Print(v)
		fmt.Print("\n")
	}
}

// Chain is a checked, ordered list of preset configs. It is shared by all connections of a
// listener; each connection gets its own presets from NewPipeline.
type Chain struct {
	confs    []*Conf
	creators []Creator
}

func NewChain(confs []*Conf) (*Chain, error) {
	if !IsSetup() {
		return nil, ErrNotSetup
	}

	c := &Chain{}
	for i, conf := range confs {
		if conf == nil {
			return nil, utils.ErrInErr{ErrDesc: "nil preset conf", ErrDetail: utils.ErrNilParameter, Data: i}
		}
		name := strings.TrimSpace(conf.Name)
		creator, ok := creatorMap[name]
		if !ok {
			return nil, utils.ErrInErr{ErrDesc: "unknown preset", ErrDetail: utils.ErrWrongParameter, Data: conf.Name}
		}
		if v, ok := creator.(Validator); ok {
			if err := v.Validate(conf); err != nil {
				return nil, utils.ErrInErr{ErrDesc: "bad preset params", ErrDetail: err, Data: name}
			}
		}
		c.confs = append(c.confs, conf)
		c.creators = append(c.creators, creator)
	}

	if ce := utils.CanLogDebug("preset chain ready"); ce != nil {
		ce.Write(zap.Strings("presets", c.Names()))
	}
	return c, nil
}

func (c *Chain) Names() []string {
	names := make([]string, len(c.confs))
	for i, conf := range c.confs {
		names[i] = strings.TrimSpace(conf.Name)
	}
	return names
}

func (c *Chain) Len() int {
	return len(c.confs)
}

// NewPipeline creates fresh presets for one connection.
func (c *Chain) NewPipeline(env Env, toRemote, toLocal WriteFunc) (*Pipeline, error) {
	presets := make([]Preset, len(c.creators))
	for i, creator := range c.creators {
		p, err := creator.NewPreset(c.confs[i], env)
		if err != nil {
			for _, created := range presets[:i] {
				if d, ok := created.(Destroyer); ok {
					d.Destroy()
				}
			}
			return nil, utils.ErrInErr{ErrDesc: "create preset failed", ErrDetail: err, Data: c.confs[i].Name}
		}
		presets[i] = p
	}
	return NewPipeline(presets, env.IsClient, toRemote, toLocal), nil
}
