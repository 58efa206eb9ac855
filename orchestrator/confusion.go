package orchestrator

import (
	"fmt"
	"strings"

	"github.com/ercarpio/SG-CNN/events"
)

// ConfusionMatrix counts windows by [true class][predicted class].
type ConfusionMatrix [events.NumClasses][events.NumClasses]int

// Add counts one window.
func (m *ConfusionMatrix) Add(truth, predicted events.Class) {
	m[truth][predicted]++
}

// Merge adds every cell of o into m.
func (m *ConfusionMatrix) Merge(o ConfusionMatrix) {
	for i := range m {
		for j := range m[i] {
			m[i][j] += o[i][j]
		}
	}
}

// Total is the number of windows counted.
func (m ConfusionMatrix) Total() int {
	n := 0
	for i := range m {
		for j := range m[i] {
			n += m[i][j]
		}
	}
	return n
}

// OffDiagonal is the number of misclassified windows.
func (m ConfusionMatrix) OffDiagonal() int {
	n := m.Total()
	for i := range m {
		n -= m[i][i]
	}
	return n
}

// Accuracy is the diagonal share, 0 for an empty matrix.
func (m ConfusionMatrix) Accuracy() float64 {
	total := m.Total()
	if total == 0 {
		return 0
	}
	return float64(total-m.OffDiagonal()) / float64(total)
}

func (m ConfusionMatrix) String() string {
	rows := make([]string, len(m))
	for i, r := range m {
		rows[i] = fmt.Sprintf("[%d, %d, %d]", r[0], r[1], r[2])
	}
	return "[" + strings.Join(rows, ", ") + "]"
}
