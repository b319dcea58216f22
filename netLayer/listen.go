package netLayer

import (
	"net"
	"os"
	"strings"
	"time"

	"github.com/e1732a364fed/blinkpipe/utils"
	"github.com/pires/go-proxyproto"
	"go.uber.org/zap"
)

func loopAccept(listener net.Listener, acceptFunc func(net.Conn)) {
	for {
		newc, err := listener.Accept()
		if err != nil {
			errStr := err.Error()
			if strings.Contains(errStr, "closed") {
				if ce := utils.CanLogDebug("listener closed"); ce != nil {
					ce.Write(zap.Error(err))
				}
				break
			}
			if ce := utils.CanLogWarn("failed to accept connection"); ce != nil {
				ce.Write(zap.Error(err))
			}
			if strings.Contains(errStr, "too many") {
				if ce := utils.CanLogWarn("Too many incoming conn! Will Sleep."); ce != nil {
					ce.Write(zap.String("err", errStr))
				}
				time.Sleep(time.Millisecond * 500)
			}
			continue
		}
		go acceptFunc(newc)
	}
}

// ListenAndAccept listens on a tcp or unix address and calls acceptFunc in a new goroutine for every
// accepted conn. It doesn't block; close the returned listener to stop.
//
// If xver > 0, every conn must start with a PROXY protocol header (v1 or v2), and RemoteAddr of the
// accepted conn reports the address carried in it.
func ListenAndAccept(network, addr string, xver int, acceptFunc func(net.Conn)) (net.Listener, error) {
	if network == "" {
		network = "tcp"
	}

	if network == "unix" && utils.FileExist(addr) {
		//a unix socket file left by a previous run makes Listen fail with "address already in use"
		if ce := utils.CanLogDebug("unix file exist"); ce != nil {
			ce.Write(zap.String("deleting", addr))
		}
		if err := os.Remove(addr); err != nil {
			return nil, utils.ErrInErr{ErrDesc: "Error when deleting previous unix socket file,", ErrDetail: err, Data: addr}
		}
	}

	listener, err := net.Listen(network, addr)
	if err != nil {
		return nil, err
	}

	if xver > 0 {
		if ce := utils.CanLogDebug("Listen PROXY protocol"); ce != nil {
			ce.Write(zap.String("addr", addr))
		}
		listener = &proxyproto.Listener{Listener: listener, Policy: proxyProtocolListenPolicyFunc}
	}

	go loopAccept(listener, acceptFunc)
	return listener, nil
}
