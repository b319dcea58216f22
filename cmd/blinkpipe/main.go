/*
Package main reads a config file and runs a blinkpipe client or server.

	blinkpipe -c client.toml
	blinkpipe init [-i] [-o dir]

Use -h to see all the flags.
*/
package main

import (
	"flag"
	"log"
	"os"
	"runtime/debug"
	"runtime/pprof"
	"strings"

	"github.com/e1732a364fed/blinkpipe/machine"
	"github.com/e1732a364fed/blinkpipe/netLayer"
	"github.com/e1732a364fed/blinkpipe/presetLayer"
	_ "github.com/e1732a364fed/blinkpipe/presetLayer/aead"
	_ "github.com/e1732a364fed/blinkpipe/presetLayer/base"
	_ "github.com/e1732a364fed/blinkpipe/presetLayer/obfstls"
	"github.com/e1732a364fed/blinkpipe/utils"
	"github.com/pkg/profile"
	"go.uber.org/zap"
)

var (
	configFileName string
	startPProf     bool
	startMProf     bool

	cmdPrintVer     bool
	cmdPrintPresets bool
)

const (
	defaultLogFile = "bp_log"
	defaultConfFn  = "client.toml"

	willExitStr = "No valid config available. Exit now.\n"
)

func init() {
	flag.StringVar(&configFileName, "c", defaultConfFn, "config file name")
	flag.BoolVar(&startPProf, "pp", false, "pprof")
	flag.BoolVar(&startMProf, "mp", false, "memory pprof")

	flag.BoolVar(&cmdPrintVer, "v", false, "print the version string then exit")
	flag.BoolVar(&cmdPrintPresets, "lp", false, "print supported presets then exit")

	flag.IntVar(&utils.LogLevel, "ll", utils.DefaultLL, "log level,0=debug, 1=info, 2=warning, 3=error, 4=fatal")
	flag.StringVar(&utils.LogOutFileName, "lf", defaultLogFile, "output file for log; If empty, no log file will be used.")
}

func runExitCommands() (atLeastOneCalled bool) {
	if cmdPrintVer {
		atLeastOneCalled = true
		printVersion_simple(os.Stdout)
	}

	if cmdPrintPresets {
		atLeastOneCalled = true
		presetLayer.PrintAllNames()
	}
	return
}

func main() {
	os.Exit(mainFunc())
}

func mainFunc() (result int) {
	var m *machine.M

	defer func() {
		if r := recover(); r != nil {
			stackStr := string(debug.Stack())
			if ce := utils.CanLogErr("Captured panic!"); ce != nil {
				ce.Write(
					zap.Any("err:", r),
					zap.String("stacktrace", stackStr),
				)
			}
			//zap escapes the newlines of the stack, so print it again for the terminal
			log.Println("panic captured!", r, "\n", stackStr)

			result = -3

			if m != nil {
				m.Stop()
			}
		}
	}()

	utils.ParseFlags()

	if flag.Arg(0) == "init" {
		return runInit(flag.Args()[1:])
	}

	if runExitCommands() {
		return
	}
	printVersion(os.Stdout)

	if startPProf {
		const pprofFN = "cpu.pprof"
		f, err := os.OpenFile(pprofFN, os.O_CREATE|os.O_RDWR, 0644)
		if err == nil {
			defer f.Close()
			if err = pprof.StartCPUProfile(f); err == nil {
				defer pprof.StopCPUProfile()
			} else {
				log.Println("pprof.StartCPUProfile failed", err)
			}
		} else {
			log.Println(pprofFN, "can't be created,", err)
		}
	}
	if startMProf {
		//without NoShutdownHook, ctrl+c wouldn't leave a profile file
		p := profile.Start(profile.MemProfile, profile.MemProfileRate(1), profile.NoShutdownHook)
		defer p.Stop()
	}

	if utils.LogOutFileName == defaultLogFile {
		if strings.Contains(configFileName, "server") {
			utils.LogOutFileName += "_server"
		} else if strings.Contains(configFileName, "client") {
			utils.LogOutFileName += "_client"
		}
	}

	utils.InitLog()
	defer utils.Info("Program exited")

	if wdir, err := os.Getwd(); err == nil {
		if ce := utils.CanLogInfo("Working at"); ce != nil {
			ce.Write(zap.String("dir", wdir))
		}
	}
	if ce := utils.CanLogDebug("All Given Flags"); ce != nil {
		ce.Write(zap.Any("flags", utils.GivenFlagKVs()))
	}

	netLayer.Prepare()

	if err := presetLayer.Setup(); err != nil {
		if ce := utils.CanLogErr("preset setup failed"); ce != nil {
			ce.Write(zap.Error(err))
		}
		return -1
	}

	m = machine.New()

	if !utils.FileExist(utils.GetFilePath(configFileName)) {
		if utils.GivenFlags["c"] == nil {
			log.Printf("No -c provided and default %q doesn't exist. Try 'blinkpipe init'.\n", defaultConfFn)
		} else {
			log.Printf("-c provided but %q doesn't exist\n", configFileName)
		}
		return -1
	}

	if err := m.LoadConfigFile(configFileName); err != nil {
		if ce := utils.CanLogErr(willExitStr); ce != nil {
			ce.Write(zap.Error(err))
		} else {
			log.Print(willExitStr, err)
		}
		return -1
	}

	if err := m.Start(); err != nil {
		return -1
	}

	osSignals := utils.GetSystemKillChan()
	<-osSignals

	if ce := utils.CanLogInfo("got kill signal"); ce != nil {
		ce.Write(
			zap.Int32("activeConnectionCount", m.ActiveConnectionCount.Load()),
			zap.Uint64("allUploadBytesSinceStart", m.AllUploadBytesSinceStart.Load()),
			zap.Uint64("allDownloadBytesSinceStart", m.AllDownloadBytesSinceStart.Load()),
		)
	}
	m.Stop()
	return
}
