package cache

import (
	"encoding/hex"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2): map keys are
// sorted, so the same argument set always produces identical bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("cache: cbor encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("cache: cbor decoder initialization failed: " + err.Error())
	}
}

func encodeValue(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

func decodeValue(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// ArgumentHash is the blake3 hex digest of the canonical encoding of args.
// It does not depend on the order in which arguments were supplied.
func ArgumentHash(args map[string]any) (string, error) {
	if args == nil {
		args = map[string]any{}
	}
	canonical, err := encMode.Marshal(args)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Key returns "{operation}:{argument_hash}".
func Key(operation string, args map[string]any) (string, error) {
	hash, err := ArgumentHash(args)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(operation) + ":" + hash, nil
}
