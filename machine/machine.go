/*
Package machine wraps everything needed to run a blinkpipe instance into one object, so that an
executable or a library user only has to load a config and call Start and Stop.

No package level state is kept here; everything lives in M.
*/
package machine

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/e1732a364fed/blinkpipe"
	"github.com/e1732a364fed/blinkpipe/utils"
	"go.uber.org/zap"
)

type M struct {
	blinkpipe.GlobalInfo
	sync.RWMutex

	standardConf blinkpipe.StandardConf
	server       *blinkpipe.Server

	running bool
}

func New() *M {
	return new(M)
}

// LoadConfigFile loads a toml file, see LoadConfig.
func (m *M) LoadConfigFile(fileName string) error {
	conf, err := blinkpipe.LoadTomlConfFile(fileName)
	if err != nil {
		return err
	}
	return m.LoadConfig(conf)
}

// LoadConfig applies the [app] part of conf and builds the server. It can't be called while running.
//
// loglevel and logfile are ignored if the -ll / -lf flags were given, since the command line wins.
func (m *M) LoadConfig(conf blinkpipe.StandardConf) error {
	m.Lock()
	defer m.Unlock()
	if m.running {
		return utils.ErrInErr{ErrDesc: "can't load config while running"}
	}

	if ac := conf.App; ac != nil {
		reinitLog := false
		if ac.LogLevel != nil && !utils.IsFlagGiven("ll") {
			utils.LogLevel = *ac.LogLevel
			reinitLog = true
		}
		if ac.LogFile != "" && !utils.IsFlagGiven("lf") {
			utils.LogOutFileName = ac.LogFile
			reinitLog = true
		}
		if reinitLog {
			utils.InitLog()
		}

		if ac.MaxBufLen != nil && *ac.MaxBufLen > 0 && *ac.MaxBufLen != utils.MaxBufLen {
			utils.MaxBufLen = *ac.MaxBufLen
			utils.AdjustBufSize()
		}
	}

	s, err := blinkpipe.NewServer(&conf, &m.GlobalInfo)
	if err != nil {
		return err
	}
	m.standardConf = conf
	m.server = s
	return nil
}

func (m *M) IsRunning() bool {
	m.RLock()
	defer m.RUnlock()
	return m.running
}

// Addr returns the address being listened on, or nil if not running.
func (m *M) Addr() string {
	m.RLock()
	defer m.RUnlock()
	if m.server == nil {
		return ""
	}
	if a := m.server.Addr(); a != nil {
		return a.String()
	}
	return ""
}

func (m *M) Start() error {
	m.Lock()
	defer m.Unlock()
	if m.server == nil {
		return utils.ErrInErr{ErrDesc: "no config loaded", ErrDetail: utils.ErrNilParameter}
	}
	if m.running {
		return nil
	}

	utils.Info("Starting...")
	if err := m.server.ListenAndServe(); err != nil {
		return err
	}
	m.running = true
	return nil
}

func (m *M) Stop() {
	utils.Info("Stopping...")

	m.Lock()
	defer m.Unlock()
	m.running = false
	if m.server != nil {
		if err := m.server.Stop(); err != nil {
			if ce := utils.CanLogDebug("stop listener"); ce != nil {
				ce.Write(zap.Error(err))
			}
		}
	}
}

func (m *M) PrintAllState(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintln(w, "activeConnectionCount", m.ActiveConnectionCount.Load())
	fmt.Fprintln(w, "allDownloadBytesSinceStart", m.AllDownloadBytesSinceStart.Load())
	fmt.Fprintln(w, "allUploadBytesSinceStart", m.AllUploadBytesSinceStart.Load())

	m.RLock()
	defer m.RUnlock()
	if m.server != nil {
		fmt.Fprintln(w, "role", m.standardConf.Role, "listen", m.standardConf.Listen, "running", m.running)
		fmt.Fprintln(w, "presets", m.server.Presets())
	}
}
