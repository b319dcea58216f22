package blinkpipe

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/e1732a364fed/blinkpipe/netLayer"
	"github.com/e1732a364fed/blinkpipe/presetLayer"
	"github.com/e1732a364fed/blinkpipe/utils"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// relayConn binds one pipeline to its two peers.
//
// On the client the accepted conn is the local peer and the server is dialed at once.
// On the server the accepted conn is the remote peer, and the target is dialed on the first write
// toward it, so that a preset has the chance to report the target first.
//
// An EOF from one peer is passed on as a half close of the other, so a peer that sends its request
// and then shuts its write side still gets the answer. The remote side is only half closed once the
// pipeline withholds nothing, since a handshake may still hold bytes read before the EOF.
// Both conns are closed when both peers sent EOF, or on any error.
type relayConn struct {
	s    *Server
	pipe *presetLayer.Pipeline

	ctx    context.Context
	cancel context.CancelFunc

	remoteConn net.Conn //set before the pipeline exists, never changes

	mu         sync.Mutex //guards the fields below
	localConn  net.Conn
	target     *netLayer.Addr
	closed     bool
	remoteShut bool

	localEOF, remoteEOF atomic.Bool

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newRelayConn(s *Server, conn net.Conn) (*relayConn, error) {
	rc := &relayConn{s: s}
	rc.ctx, rc.cancel = context.WithCancel(context.Background())

	if s.isClient {
		rc.localConn = conn

		remote, err := s.remote.Dial(rc.ctx)
		if err != nil {
			rc.cancel()
			return nil, utils.ErrInErr{ErrDesc: "dial remote failed", ErrDetail: err, Data: s.remote.String()}
		}
		rc.remoteConn = remote

		if ce := utils.CanLogDebug("remote connected"); ce != nil {
			ce.Write(zap.String("remote", s.remote.String()))
		}
	} else {
		rc.remoteConn = conn
		rc.target = s.target
	}

	pipe, err := s.chain.NewPipeline(s.env(rc.onTarget), rc.writeRemote, rc.writeLocal)
	if err != nil {
		if s.isClient {
			rc.remoteConn.Close()
		}
		rc.cancel()
		return nil, err
	}
	rc.pipe = pipe
	return rc, nil
}

// relay blocks until both directions are done, then destroys the pipeline.
func (rc *relayConn) relay() {
	if rc.s.isClient {
		rc.wg.Add(1)
		go func() {
			defer rc.wg.Done()
			rc.readLoop(rc.remoteConn, false)
		}()
		rc.readLoop(rc.localConn, true)
	} else {
		//the local read loop is started by localPeer
		rc.readLoop(rc.remoteConn, false)
	}

	rc.wg.Wait()
	rc.close()
	rc.pipe.Close()
}

// readLoop feeds everything read from c into the pipeline. EOF ends only this direction,
// any other error ends the whole connection.
func (rc *relayConn) readLoop(c net.Conn, fromLocal bool) {
	push, side := rc.pipe.FromRemote, "remote"
	if fromLocal {
		push, side = rc.pipe.FromLocal, "local"
	}

	buf := utils.GetPacket()
	defer utils.PutPacket(buf)

	for {
		n, err := c.Read(buf)
		if n > 0 {
			if perr := push(buf[:n]); perr != nil {
				rc.logPipelineErr(perr, side)
				rc.close()
				return
			}
			if !fromLocal {
				//a handshake finished by these bytes may have flushed what the local peer sent before its EOF
				rc.shutRemoteWrite()
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				rc.gotEOF(fromLocal)
				return
			}
			if !errors.Is(err, net.ErrClosed) {
				if ce := utils.CanLogDebug("read failed"); ce != nil {
					ce.Write(zap.String("side", side), zap.Error(err))
				}
			}
			rc.close()
			return
		}
	}
}

// gotEOF passes an EOF on to the other peer.
func (rc *relayConn) gotEOF(fromLocal bool) {
	if fromLocal {
		rc.localEOF.Store(true)
	} else {
		rc.remoteEOF.Store(true)
	}
	if rc.localEOF.Load() && rc.remoteEOF.Load() {
		rc.close()
		return
	}

	if fromLocal {
		rc.shutRemoteWrite()
		return
	}

	rc.mu.Lock()
	local := rc.localConn
	rc.mu.Unlock()

	//the server never connected the target, or what is withheld can't be sent anymore
	if local == nil || rc.pipe.Withholding() {
		rc.close()
		return
	}
	if !closeWrite(local) {
		rc.close()
	}
}

// shutRemoteWrite half closes the remote conn once the local peer sent EOF and the pipeline
// withholds nothing more. It may be called any number of times.
func (rc *relayConn) shutRemoteWrite() {
	if !rc.localEOF.Load() || rc.pipe.Withholding() {
		return
	}

	rc.mu.Lock()
	if rc.closed || rc.remoteShut {
		rc.mu.Unlock()
		return
	}
	rc.remoteShut = true
	rc.mu.Unlock()

	if ce := utils.CanLogDebug("local EOF, half closing remote"); ce != nil {
		ce.Write(zap.String("remote", rc.remoteConn.RemoteAddr().String()))
	}
	if !closeWrite(rc.remoteConn) {
		rc.close()
	}
}

type closeWriter interface {
	CloseWrite() error
}

// closeWrite shuts the write side of c. It returns false if c can't be half closed.
func closeWrite(c net.Conn) bool {
	cw, ok := c.(closeWriter)
	if !ok {
		return false
	}
	return cw.CloseWrite() == nil
}

func (rc *relayConn) logPipelineErr(err error, side string) {
	if errors.Is(err, net.ErrClosed) {
		return
	}
	if ce := utils.CanLogWarn("pipeline broken"); ce != nil {
		stage := ""
		var se *presetLayer.StageError
		if errors.As(err, &se) {
			stage = se.Stage
		}
		ce.Write(
			zap.String("from", rc.remoteConn.RemoteAddr().String()),
			zap.String("side", side),
			zap.String("stage", stage),
			zap.Error(err),
		)
	}
}

func (rc *relayConn) onTarget(addr netLayer.Addr) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.localConn != nil {
		return utils.ErrInErr{ErrDesc: "target reported after the target was connected", Data: addr.String()}
	}
	rc.target = &addr

	if ce := utils.CanLogDebug("got target"); ce != nil {
		ce.Write(zap.String("target", addr.String()))
	}
	return nil
}

func (rc *relayConn) writeRemote(b []byte) error {
	n, err := rc.remoteConn.Write(b)
	rc.s.gi.AllUploadBytesSinceStart.Add(uint64(n))
	return err
}

func (rc *relayConn) writeLocal(b []byte) error {
	c, err := rc.localPeer()
	if err != nil {
		return err
	}
	n, err := c.Write(b)
	rc.s.gi.AllDownloadBytesSinceStart.Add(uint64(n))
	return err
}

// localPeer returns the local conn, dialing the target first if needed.
func (rc *relayConn) localPeer() (net.Conn, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.closed {
		return nil, net.ErrClosed
	}
	if rc.localConn != nil {
		return rc.localConn, nil
	}
	if rc.target == nil {
		return nil, utils.ErrInErr{ErrDesc: "no target to connect to", ErrDetail: utils.ErrNilParameter}
	}

	c, err := rc.target.Dial(rc.ctx)
	if err != nil {
		return nil, utils.ErrInErr{ErrDesc: "dial target failed", ErrDetail: err, Data: rc.target.String()}
	}
	if rc.s.targetXver > 0 {
		if _, err := netLayer.WritePROXYprotocol(rc.s.targetXver, rc.remoteConn, c); err != nil {
			c.Close()
			return nil, err
		}
	}
	rc.localConn = c

	if ce := utils.CanLogDebug("target connected"); ce != nil {
		ce.Write(zap.String("target", rc.target.String()))
	}

	rc.wg.Add(1)
	go func() {
		defer rc.wg.Done()
		rc.readLoop(c, true)
	}()
	return c, nil
}

func (rc *relayConn) close() {
	rc.closeOnce.Do(func() {
		rc.cancel()

		rc.mu.Lock()
		rc.closed = true
		local := rc.localConn
		rc.mu.Unlock()

		rc.remoteConn.Close()
		if local != nil {
			local.Close()
		}
	})
}
