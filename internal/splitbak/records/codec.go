// Package records frames Operation records and raw byte spans onto a single
// byte stream.
//
// A record is a 4-byte little-endian payload length followed by the payload, a
// CBOR map with integer keys:
//
//	1: kind (1 EnterDirectory, 2 LeaveDirectory, 3 CreateFile)
//	2: name (omitted for LeaveDirectory)
//	3: size (CreateFile only, omitted when zero)
//
// A span is an unframed run of bytes whose length is known from the record
// that precedes it.
package records

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/types"
)

// MaxRecordSize bounds the payload length accepted from a length prefix, so a
// corrupt prefix cannot trigger a huge allocation.
const MaxRecordSize = 64 * 1024

// ErrMalformedRecord is returned when a complete record cannot be decoded into
// a valid Operation.
var ErrMalformedRecord = errors.New("malformed record")

type opKind uint8

const (
	kindEnterDirectory opKind = 1
	kindLeaveDirectory opKind = 2
	kindCreateFile     opKind = 3
)

// wireOperation is the on-disk shape of every Operation variant.
type wireOperation struct {
	Kind opKind `cbor:"1,keyasint"`
	Name string `cbor:"2,keyasint,omitempty"`
	Size uint64 `cbor:"3,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// Core Deterministic Encoding: the same Operation always produces the
	// same bytes.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("records: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic("records: CBOR decoder initialization failed: " + err.Error())
	}
}

// EncodeOperation serializes op into a record payload.
func EncodeOperation(op types.Operation) ([]byte, error) {
	var wire wireOperation
	switch op := op.(type) {
	case types.EnterDirectory:
		if err := types.ValidateName(op.Name); err != nil {
			return nil, fmt.Errorf("cannot encode %v: %w", op, err)
		}
		wire = wireOperation{Kind: kindEnterDirectory, Name: op.Name}
	case types.LeaveDirectory:
		wire = wireOperation{Kind: kindLeaveDirectory}
	case types.CreateFile:
		if err := types.ValidateName(op.Name); err != nil {
			return nil, fmt.Errorf("cannot encode %v: %w", op, err)
		}
		wire = wireOperation{Kind: kindCreateFile, Name: op.Name, Size: op.Size}
	default:
		return nil, fmt.Errorf("cannot encode operation of type %T", op)
	}

	payload, err := encMode.Marshal(wire)
	if err != nil {
		return nil, err
	}
	if len(payload) > MaxRecordSize {
		return nil, fmt.Errorf("cannot encode %v: payload of %d bytes exceeds %d", op, len(payload), MaxRecordSize)
	}
	return payload, nil
}

// DecodeOperation parses a record payload. Every failure wraps
// ErrMalformedRecord.
func DecodeOperation(payload []byte) (types.Operation, error) {
	var wire wireOperation
	if err := decMode.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	switch wire.Kind {
	case kindEnterDirectory:
		if wire.Size != 0 {
			return nil, fmt.Errorf("%w: EnterDirectory carries a size", ErrMalformedRecord)
		}
		if err := types.ValidateName(wire.Name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		return types.EnterDirectory{Name: wire.Name}, nil
	case kindLeaveDirectory:
		if wire.Name != "" || wire.Size != 0 {
			return nil, fmt.Errorf("%w: LeaveDirectory carries a payload", ErrMalformedRecord)
		}
		return types.LeaveDirectory{}, nil
	case kindCreateFile:
		if err := types.ValidateName(wire.Name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		return types.CreateFile{Name: wire.Name, Size: wire.Size}, nil
	default:
		return nil, fmt.Errorf("%w: unknown operation kind %d", ErrMalformedRecord, wire.Kind)
	}
}
