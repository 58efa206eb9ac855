package orchestrator

import "github.com/ercarpio/SG-CNN/interval"

// schedule is the fixed-size, fixed-stride window geometry of one modality.
// Window k covers frames [stride*k, stride*k+size) and completes at frame
// stride*k+size.
type schedule struct {
	size, stride int
}

func (s schedule) completes(frame, k int) bool {
	return frame == s.stride*k+s.size
}

func (s schedule) span(k int) interval.Interval {
	start := s.stride * k
	return interval.New(start, start+s.size)
}

// chunks is the number of windows that complete within frames [0, n).
func (s schedule) chunks(n int) int {
	if n <= s.size {
		return 0
	}
	return (n-1-s.size)/s.stride + 1
}

// capped clips a window's end to the sequence length for labeling.
func capped(iv interval.Interval, n int) interval.Interval {
	if iv.End > n {
		iv.End = n
	}
	return iv
}

// WindowSpans lists, in order, the windows of a size and stride schedule that
// complete within a sequence of n frames.
func WindowSpans(size, stride, n int) []interval.Interval {
	s := schedule{size: size, stride: stride}
	out := make([]interval.Interval, s.chunks(n))
	for k := range out {
		out[k] = s.span(k)
	}
	return out
}
