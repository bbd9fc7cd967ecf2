// Package orbus implements the request/response protocol spoken with the
// motor controller board over a serial link.
package orbus

// Many independent logical messages (motor commands, diagnostics, system
// info, PID parameters) are multiplexed onto one byte-oriented link. A
// round trip batches all pending outbound messages into a single frame,
// writes it, blocks for the reply frame and routes each decoded inbound
// message to the handler registered for its group.
//
// Every encoded message starts with its own total length, so a frame
// payload is walked without any separate table of contents. The frame
// itself carries two sync bytes, a payload length and a trailing modulo-256
// checksum.
//
// Producer: any board subsystem adapter
// Consumer: the embedded controller firmware
