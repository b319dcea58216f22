/*
Package blinkpipe relays tcp connections through a chain of presets, so that the traffic between a
client and a server looks like something else on the wire.

# Structure

utils -> netLayer -> tlsLayer -> presetLayer -> presetLayer/{base,aead,obfstls} -> blinkpipe -> machine -> cmd/blinkpipe

The root package only deals with the actual relaying. A Server listens, and binds every accepted
connection to a fresh presetLayer.Pipeline built from the configured presets.

	client app <-> [client: local | presets | remote] <-> [server: remote | presets | local] <-> target

A client dials its server as soon as a connection comes in. A server dials the target on the first
bytes that go toward it, after the presets had the chance to tell the target (ss-base does).

# Presets

	ss-base            address of the target in front of the stream
	ss-aead-cipher     shadowsocks aead chunks
	obfs-tls1.2-ticket makes the stream look like a TLS 1.2 session resumed with a session ticket

See the presetLayer package for how a preset is written, and tcp_test.go for how a pair is set up.
*/
package blinkpipe
