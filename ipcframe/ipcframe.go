// Package ipcframe implements the length-delimited frame format shared by
// every message exchanged with the Unity Bridge: a 4-byte big-endian length
// prefix followed by exactly that many payload bytes. It has no delimiters,
// no escapes, and no magic number — the frame boundary is wholly described
// by the length prefix.
package ipcframe

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/unity-mcp/bridge-ipc/ipcerr"
)

// MaxPayload is the largest legal frame payload: 64 MiB.
const MaxPayload = 64 * 1024 * 1024

const headerLen = 4

// WriteFrame writes one length-delimited frame to w. It fails with
// ipcerr.FrameTooLarge if payload exceeds MaxPayload, without writing
// anything to w.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayload {
		return ipcerr.New(ipcerr.FrameTooLarge, fmt.Sprintf("payload %d bytes exceeds %d byte limit", len(payload), MaxPayload))
	}

	var hdr [headerLen]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))

	if _, err := w.Write(hdr[:]); err != nil {
		return ipcerr.Wrap(ipcerr.IO, "write frame header", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return ipcerr.Wrap(ipcerr.IO, "write frame payload", err)
	}
	return nil
}

// ReadFrame reads one length-delimited frame from r. EOF before any bytes of
// the header are read is returned verbatim (the caller treats it as a clean
// stream close); EOF mid-header or mid-body fails with ipcerr.UnexpectedEOF.
// A header reporting LEN > MaxPayload fails with ipcerr.FrameTooLarge
// without reading the body.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, ipcerr.Wrap(ipcerr.UnexpectedEOF, "read frame header", err)
	}

	length := binary.BigEndian.Uint32(hdr[:])
	if length > MaxPayload {
		return nil, ipcerr.New(ipcerr.FrameTooLarge, fmt.Sprintf("frame length %d exceeds %d byte limit", length, MaxPayload))
	}
	if length == 0 {
		return []byte{}, nil
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, ipcerr.Wrap(ipcerr.UnexpectedEOF, "read frame payload", err)
	}
	return payload, nil
}
