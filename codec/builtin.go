// File: codec/builtin.go
// Built-in codecs for the shapes the message assembler always supports
// without any endpoint-declared decoder (plain string / byte slice).
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package codec

// StringFallbackDecoder never claims a message; it exists only as a
// documented marker that the dispatcher falls back to delivering the
// raw string/[]byte directly to the callback when no decoder accepts
// it and the callback's declared shape is string or []byte (spec §4.4).
type StringFallbackDecoder struct{}

func (StringFallbackDecoder) WillDecode(string) bool { return false }
