package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/asaskevich/govalidator"
	"github.com/e1732a364fed/blinkpipe"
	"github.com/e1732a364fed/blinkpipe/netLayer"
	"github.com/e1732a364fed/blinkpipe/presetLayer"
	"github.com/e1732a364fed/blinkpipe/presetLayer/aead"
	"github.com/e1732a364fed/blinkpipe/presetLayer/base"
	"github.com/e1732a364fed/blinkpipe/presetLayer/obfstls"
	"github.com/e1732a364fed/blinkpipe/utils"
	"github.com/manifoldco/promptui"
)

// genOptions is what differs between two generated config pairs.
type genOptions struct {
	clientPort int
	serverHost string
	serverPort int
	target     string
	method     string
	key        string
	sni        string
}

func defaultGenOptions() genOptions {
	return genOptions{
		clientPort: 10800,
		serverHost: "127.0.0.1",
		serverPort: 4433,
		target:     "127.0.0.1:80",
		method:     aead.DefaultMethod,
		key:        hex.EncodeToString(utils.RandomBytes(16)),
		sni:        "www.bing.com",
	}
}

func (o genOptions) presets() []*presetLayer.Conf {
	return []*presetLayer.Conf{
		{Name: base.Name},
		{Name: aead.Name, Params: map[string]any{"method": o.method, "key": o.key}},
		{Name: obfstls.Name, Params: map[string]any{"sni": o.sni}},
	}
}

func generateConfs(o genOptions) (confClient, confServer blinkpipe.StandardConf) {
	confClient = blinkpipe.StandardConf{
		Role:    blinkpipe.RoleClient,
		Listen:  net.JoinHostPort("127.0.0.1", strconv.Itoa(o.clientPort)),
		Remote:  net.JoinHostPort(o.serverHost, strconv.Itoa(o.serverPort)),
		Target:  o.target,
		Presets: o.presets(),
	}
	confServer = blinkpipe.StandardConf{
		Role:    blinkpipe.RoleServer,
		Listen:  net.JoinHostPort("0.0.0.0", strconv.Itoa(o.serverPort)),
		Presets: o.presets(),
	}
	return
}

// runInit writes client.toml and server.toml, which work with each other.
func runInit(args []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	interactive := fs.Bool("i", false, "ask for every value")
	outDir := fs.String("o", ".", "directory to write client.toml and server.toml into")
	if err := fs.Parse(args); err != nil {
		return -1
	}

	o := defaultGenOptions()
	if *interactive {
		var ok bool
		if o, ok = interactivelyGetOptions(o); !ok {
			return -1
		}
	}

	confClient, confServer := generateConfs(o)

	for fn, conf := range map[string]*blinkpipe.StandardConf{"client.toml": &confClient, "server.toml": &confServer} {
		str, err := utils.GetPurgedTomlStr(conf)
		if err != nil {
			fmt.Printf("encode %s failed: %v\n", fn, err)
			return -1
		}
		p := filepath.Join(*outDir, fn)
		if err := os.WriteFile(p, []byte(str), 0644); err != nil {
			fmt.Printf("write %s failed: %v\n", p, err)
			return -1
		}
		fmt.Printf("%s written\n", p)
	}
	return 0
}

func validatePort(input string) error {
	theInt, err := strconv.Atoi(input)
	if err != nil || theInt < 1 || theInt > 65535 {
		return utils.ErrInErr{ErrDesc: "port must be in 1-65535", ErrDetail: utils.ErrInvalidData, Data: input}
	}
	return nil
}

func validateTarget(input string) error {
	_, err := netLayer.HostToAddress(input)
	return err
}

func interactivelyGetOptions(o genOptions) (genOptions, bool) {
	promptPort := promptui.Prompt{
		Label:    "Port the client listens on",
		Default:  strconv.Itoa(o.clientPort),
		Validate: validatePort,
	}
	result, err := promptPort.Run()
	if err != nil {
		fmt.Printf("Prompt failed %v\n", err)
		return o, false
	}
	o.clientPort, _ = strconv.Atoi(result)

	promptHost := promptui.Prompt{
		Label:    "Server ip or domain",
		Default:  o.serverHost,
		Validate: utils.WrapFuncForPromptUI(govalidator.IsHost),
	}
	if o.serverHost, err = promptHost.Run(); err != nil {
		fmt.Printf("Prompt failed %v\n", err)
		return o, false
	}

	promptServerPort := promptui.Prompt{
		Label:    "Port the server listens on",
		Default:  strconv.Itoa(o.serverPort),
		Validate: validatePort,
	}
	if result, err = promptServerPort.Run(); err != nil {
		fmt.Printf("Prompt failed %v\n", err)
		return o, false
	}
	o.serverPort, _ = strconv.Atoi(result)

	promptTarget := promptui.Prompt{
		Label:    "Target, host:port",
		Default:  o.target,
		Validate: validateTarget,
	}
	if o.target, err = promptTarget.Run(); err != nil {
		fmt.Printf("Prompt failed %v\n", err)
		return o, false
	}

	selectMethod := promptui.Select{
		Label: "Cipher",
		Items: aead.Methods,
	}
	if _, o.method, err = selectMethod.Run(); err != nil {
		fmt.Printf("Prompt failed %v\n", err)
		return o, false
	}

	promptSNI := promptui.Prompt{
		Label:    "SNI",
		Default:  o.sni,
		Validate: utils.WrapFuncForPromptUI(govalidator.IsDNSName),
	}
	if o.sni, err = promptSNI.Run(); err != nil {
		fmt.Printf("Prompt failed %v\n", err)
		return o, false
	}

	fmt.Printf("A random key is generated: %s\n", o.key)
	return o, true
}
