package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/annel0/rivergen/internal/river"
	"github.com/annel0/rivergen/internal/world"
	"github.com/klauspost/compress/zstd"
)

// ErrCorrupt возвращается, если сохраненный блок не удается разобрать
var ErrCorrupt = errors.New("поврежденные данные чанка")

const (
	codecMagic0  = 'R'
	codecMagic1  = 'V'
	codecVersion = 1
	headerSize   = 3

	flagFlow     = 1 << 0
	flagDistance = 1 << 1

	flowBytes     = world.ColumnsInChunk * 2 * 4
	distanceBytes = world.ColumnsInChunk * 2

	// maxRawSize - самый большой допустимый распакованный блок: координаты, флаги и оба массива
	maxRawSize = 9 + flowBytes + distanceBytes
)

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

// initCodec создает общие кодировщики; EncodeAll и DecodeAll безопасны для горутин
func initCodec() error {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxRawSize))
	})
	return codecErr
}

// EncodeChunk упаковывает массивы чанка для хранилища.
// Течение записывается, только если в чанке есть течение, расстояния - только
// если чанк в пределах двух ширин долины. Если не нужно ни то ни другое, возвращает nil.
//
// Формат: 'R' 'V' версия, затем zstd кадр с полями
// chunkX int32, chunkZ int32, флаги uint8, [течение float32 x 2048], [расстояния uint16 x 1024].
func EncodeChunk(data *world.ChunkRiverData) ([]byte, error) {
	var flags byte
	if data.HasFlow {
		flags |= flagFlow
	}
	if data.InValleyRange {
		flags |= flagDistance
	}
	if flags == 0 {
		return nil, nil
	}

	if err := initCodec(); err != nil {
		return nil, fmt.Errorf("не удалось создать zstd кодировщик: %w", err)
	}

	raw := make([]byte, 0, maxRawSize)
	raw = binary.LittleEndian.AppendUint32(raw, uint32(int32(data.ChunkX)))
	raw = binary.LittleEndian.AppendUint32(raw, uint32(int32(data.ChunkZ)))
	raw = append(raw, flags)

	if flags&flagFlow != 0 {
		for _, f := range data.Flow {
			raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(f))
		}
	}
	if flags&flagDistance != 0 {
		for _, d := range data.Distance {
			raw = binary.LittleEndian.AppendUint16(raw, d)
		}
	}

	out := []byte{codecMagic0, codecMagic1, codecVersion}
	return encoder.EncodeAll(raw, out), nil
}

// DecodeChunk восстанавливает массивы чанка. Отсутствующее течение заполняется river.NoFlow,
// отсутствующие расстояния - river.NoRiverDistance. Береговой и долинный массивы
// не хранятся: берег равен 0, долина 1.
func DecodeChunk(blob []byte) (*world.ChunkRiverData, error) {
	if len(blob) < headerSize || blob[0] != codecMagic0 || blob[1] != codecMagic1 {
		return nil, fmt.Errorf("%w: неверный заголовок", ErrCorrupt)
	}
	if blob[2] != codecVersion {
		return nil, fmt.Errorf("%w: неизвестная версия %d", ErrCorrupt, blob[2])
	}

	if err := initCodec(); err != nil {
		return nil, fmt.Errorf("не удалось создать zstd декодер: %w", err)
	}

	raw, err := decoder.DecodeAll(blob[headerSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(raw) < 9 {
		return nil, fmt.Errorf("%w: короткий блок (%d байт)", ErrCorrupt, len(raw))
	}

	chunkX := int(int32(binary.LittleEndian.Uint32(raw[0:4])))
	chunkZ := int(int32(binary.LittleEndian.Uint32(raw[4:8])))
	flags := raw[8]
	body := raw[9:]

	expected := 0
	if flags&flagFlow != 0 {
		expected += flowBytes
	}
	if flags&flagDistance != 0 {
		expected += distanceBytes
	}
	if len(body) != expected {
		return nil, fmt.Errorf("%w: ожидалось %d байт массивов, получено %d", ErrCorrupt, expected, len(body))
	}

	data := world.NewChunkRiverData(chunkX, chunkZ)
	for i := range data.Valley {
		data.Valley[i] = 1
	}

	if flags&flagFlow != 0 {
		for i := range data.Flow {
			data.Flow[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:]))
		}
		body = body[flowBytes:]
		data.HasFlow = true
	} else {
		for i := range data.Flow {
			data.Flow[i] = river.NoFlow
		}
	}

	if flags&flagDistance != 0 {
		for i := range data.Distance {
			data.Distance[i] = binary.LittleEndian.Uint16(body[i*2:])
		}
		data.InValleyRange = true
	} else {
		for i := range data.Distance {
			data.Distance[i] = river.NoRiverDistance
		}
	}

	return data, nil
}

// chunkKey - ключ чанка внутри хранилища (без префикса бэкенда)
func chunkKey(chunkX, chunkZ int) string {
	return fmt.Sprintf("chunk:%d:%d", chunkX, chunkZ)
}
