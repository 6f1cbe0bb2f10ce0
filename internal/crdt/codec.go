package crdt

import (
	"errors"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

// formatVersion - первый байт каждого закодированного блока.
const formatVersion byte = 1

// MaxDecodedSize ограничивает распакованный размер блока. Блок больше
// лимита считается поврежденным: маленькая дельта не должна разворачиваться
// в гигабайты на каждом клиенте.
const MaxDecodedSize = 16 << 20

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	decoder, _ = zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(MaxDecodedSize))
)

// ErrEmptyPayload is returned when Decode receives no bytes.
var ErrEmptyPayload = errors.New("empty payload")

// DecodeError signals malformed delta or state bytes.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Encode сериализует пачку операций: версия + zstd(JSON).
// Операции сортируются по ID, поэтому одинаковый набор всегда дает одинаковые байты.
func Encode(ops []Op) []byte {
	sorted := make([]Op, len(ops))
	copy(sorted, ops)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID.Less(sorted[j].ID) })

	raw, err := json.Marshal(sorted)
	if err != nil {
		// Op состоит только из сериализуемых полей
		panic(fmt.Sprintf("crdt: marshal ops: %v", err))
	}

	out := make([]byte, 1, len(raw)/2+1)
	out[0] = formatVersion
	return encoder.EncodeAll(raw, out)
}

// Decode разбирает блок, созданный Encode. Любая ошибка возвращается как *DecodeError.
func Decode(data []byte) ([]Op, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: ErrEmptyPayload}
	}
	if data[0] != formatVersion {
		return nil, &DecodeError{Err: fmt.Errorf("unsupported format version %d", data[0])}
	}

	raw, err := decoder.DecodeAll(data[1:], nil)
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("failed to decompress: %w", err)}
	}

	var ops []Op
	if err := json.Unmarshal(raw, &ops); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("failed to unmarshal ops: %w", err)}
	}

	for _, op := range ops {
		if err := op.validate(); err != nil {
			return nil, &DecodeError{Err: err}
		}
	}

	return ops, nil
}
