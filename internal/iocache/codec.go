package iocache

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/huangsam/assetcache/internal/contract"
	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
)

// Shared zstd codecs; EncodeAll and DecodeAll are safe for concurrent use.
var (
	bodyEncoder = mustEncoder()
	bodyDecoder = mustDecoder()
)

func mustEncoder() *zstd.Encoder {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(fmt.Sprintf("zstd encoder: %v", err))
	}
	return enc
}

func mustDecoder() *zstd.Decoder {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("zstd decoder: %v", err))
	}
	return dec
}

// entryKey returns the fixed-width column value for a request key.
func entryKey(key contract.RequestKey) string {
	return digest.FromString(key.String()).String()
}

// compressBody encodes a response body for storage. Empty bodies stay empty.
func compressBody(body []byte) []byte {
	if len(body) == 0 {
		return []byte{}
	}
	return bodyEncoder.EncodeAll(body, make([]byte, 0, len(body)/2))
}

// decompressBody reverses compressBody.
func decompressBody(stored []byte) ([]byte, error) {
	if len(stored) == 0 {
		return []byte{}, nil
	}
	body, err := bodyDecoder.DecodeAll(stored, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress cached body: %w", err)
	}
	return body, nil
}

func encodeHeader(h http.Header) (string, error) {
	if h == nil {
		h = http.Header{}
	}
	data, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("failed to encode headers: %w", err)
	}
	return string(data), nil
}

func decodeHeader(s string) (http.Header, error) {
	h := http.Header{}
	if s == "" {
		return h, nil
	}
	if err := json.Unmarshal([]byte(s), &h); err != nil {
		return nil, fmt.Errorf("failed to decode headers: %w", err)
	}
	return h, nil
}

// errVaryWildcard marks a response whose Vary header matches no request.
var errVaryWildcard = errors.New("response varies on every request header")

// varyNames returns the canonical header names listed in the Vary header of resp.
func varyNames(resp http.Header) ([]string, error) {
	var names []string
	for _, v := range resp.Values("Vary") {
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if name == "*" {
				return nil, errVaryWildcard
			}
			names = append(names, http.CanonicalHeaderKey(name))
		}
	}
	return names, nil
}

// encodeVary records the request header values the response varies on.
// Responses without Vary store an empty string.
func encodeVary(resp, req http.Header) (string, error) {
	names, err := varyNames(resp)
	if err != nil || len(names) == 0 {
		return "", err
	}
	selected := make(map[string][]string, len(names))
	for _, name := range names {
		values := req.Values(name)
		if values == nil {
			values = []string{}
		}
		selected[name] = values
	}
	data, err := json.Marshal(selected)
	if err != nil {
		return "", fmt.Errorf("failed to encode vary headers: %w", err)
	}
	return string(data), nil
}

// varyMatches reports whether req carries the same values for every header
// recorded by encodeVary.
func varyMatches(stored string, req http.Header) (bool, error) {
	if stored == "" {
		return true, nil
	}
	var selected map[string][]string
	if err := json.Unmarshal([]byte(stored), &selected); err != nil {
		return false, fmt.Errorf("failed to decode vary headers: %w", err)
	}
	for name, values := range selected {
		if strings.Join(values, ",") != strings.Join(req.Values(name), ",") {
			return false, nil
		}
	}
	return true, nil
}
