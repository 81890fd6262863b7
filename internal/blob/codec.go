// Пакет blob — кодек данных файла между памятью и форматом хранения.
//
// Формат хранения — zstd-фрейм с контрольной суммой содержимого.
// Decode(Encode(b)) возвращает исходные байты для любого входа, включая пустой.
package blob

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

var (
	// ErrCorrupted — данные в хранилище не являются корректным фреймом.
	ErrCorrupted = errors.New("повреждённые данные в хранилище")
	// ErrSizeLimit — фрейм корректен, но раскодированные данные больше лимита декодера.
	ErrSizeLimit = errors.New("данные превышают лимит декодера")
)

// Codec — zstd-кодек. Безопасен для конкурентного использования:
// EncodeAll/DecodeAll не хранят состояние между вызовами.
type Codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// minDecoderMemory — нижняя граница лимита декодера: окно zstd не меньше 1 KiB,
// и слишком малый лимит отклонил бы корректные фреймы.
const minDecoderMemory = 1 << 20

// NewCodec создаёт кодек. maxDecodedSize ограничивает размер
// раскодированных данных (не ниже 1 MiB); 0 — ограничение библиотеки по умолчанию.
func NewCodec(maxDecodedSize int64) (*Codec, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedFastest),
		zstd.WithEncoderCRC(true),
		zstd.WithZeroFrames(true),
	)
	if err != nil {
		return nil, fmt.Errorf("создание zstd encoder: %w", err)
	}

	decOpts := []zstd.DOption{zstd.WithDecoderConcurrency(0)}
	if maxDecodedSize > 0 {
		maxDecodedSize = max(maxDecodedSize, minDecoderMemory)
		decOpts = append(decOpts, zstd.WithDecoderMaxMemory(uint64(maxDecodedSize)))
	}
	dec, err := zstd.NewReader(nil, decOpts...)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("создание zstd decoder: %w", err)
	}

	return &Codec{enc: enc, dec: dec}, nil
}

// Encode переводит данные в формат хранения.
func (c *Codec) Encode(data []byte) ([]byte, error) {
	return c.enc.EncodeAll(data, make([]byte, 0, len(data)/2+64)), nil
}

// Decode восстанавливает исходные данные из формата хранения.
func (c *Codec) Decode(stored []byte) ([]byte, error) {
	if len(stored) == 0 {
		return nil, fmt.Errorf("%w: пустой фрейм", ErrCorrupted)
	}
	out, err := c.dec.DecodeAll(stored, nil)
	if err != nil {
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrSizeLimit, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

// Close освобождает ресурсы кодека.
func (c *Codec) Close() {
	_ = c.enc.Close()
	c.dec.Close()
}
