// Package cwl copies byte streams into a gbn stream at a bounded rate.
package cwl

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

const chunkSize = 32 * 1024

// CopyWithLimit is like io.Copy but waits on limiter before every write and
// reports each chunk read to callback. A nil limiter or callback is skipped.
// Chunks never exceed the limiter's burst, since WaitN rejects larger ones.
func CopyWithLimit(ctx context.Context, dst io.Writer, src io.Reader, limiter *rate.Limiter, callback func(int)) (n int64, err error) {
	size := chunkSize
	if limiter != nil && limiter.Burst() > 0 && limiter.Burst() < size {
		size = limiter.Burst()
	}
	buf := make([]byte, size)
	for {
		nr, er := src.Read(buf)
		if nr > 0 {
			if callback != nil {
				callback(nr)
			}
			if limiter != nil {
				if err = limiter.WaitN(ctx, nr); err != nil {
					return
				}
			}
			nw, ew := dst.Write(buf[:nr])
			if nw > 0 {
				n += int64(nw)
			}
			if ew != nil {
				err = ew
				return
			}
			if nr != nw {
				err = io.ErrShortWrite
				return
			}
		}
		if er != nil {
			if er != io.EOF {
				err = er
			}
			return
		}
	}
}
