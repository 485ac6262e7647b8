package ipcproto

import "encoding/hex"

// SchemaHash is the compiled-in build-compatibility fingerprint: the
// SHA-256 of the canonical FileDescriptorSet for the message families in
// this package (sorted inputs, include_imports=true, include_source_info=false).
// It is generated offline from the shared schema corpus and baked in here;
// the handshake compares it byte-for-byte against whatever the Bridge sends
// back in Welcome. Regenerate it (and bump IPCVersion's minor, if the change
// is backwards compatible) whenever a message family in this package changes
// shape.
var SchemaHash = mustDecodeHex("a3f1c9f2e6d4b8a07c5e913f2d4a6b8c0e1f3a5b7c9d0e2f4a6b8c0d2e4f6a81")

// IPCVersion is the handshake protocol version this client speaks. Only the
// major component (before the dot) is checked by the server.
const IPCVersion = "1.0"

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("ipcproto: invalid SchemaHash literal: " + err.Error())
	}
	if len(b) != 32 {
		panic("ipcproto: SchemaHash must be 32 bytes")
	}
	return b
}

// SchemaHashPrefix renders the first 4 bytes (8 hex chars) of a schema hash
// for diagnostics, per the spec: comparison is always on raw bytes, the hex
// prefix is for error messages only.
func SchemaHashPrefix(hash []byte) string {
	n := len(hash)
	if n > 4 {
		n = 4
	}
	return hex.EncodeToString(hash[:n])
}
