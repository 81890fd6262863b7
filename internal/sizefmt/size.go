// Пакет sizefmt — человекочитаемое представление размера в байтах.
package sizefmt

import (
	"strconv"

	units "github.com/docker/go-units"
)

// binaryUnits — суффиксы по основанию 1024 в записи "KB", а не "KiB".
var binaryUnits = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// Format форматирует размер по основанию 1024.
// Меньше 1024 байт — целое число с суффиксом "B" ("500 B"),
// иначе ровно один знак после точки ("1.5 KB", "1.0 MB").
// Отрицательные значения форматируются по модулю с ведущим минусом.
func Format(bytes int64) string {
	if bytes < 0 {
		// -(bytes+1)+1 не переполняется для math.MinInt64
		return "-" + formatUnsigned(uint64(-(bytes+1))+1)
	}
	return formatUnsigned(uint64(bytes))
}

func formatUnsigned(n uint64) string {
	if n < 1024 {
		return strconv.FormatUint(n, 10) + " B"
	}
	return units.CustomSize("%.1f %s", float64(n), 1024.0, binaryUnits)
}
