package progress

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxLine 是单行的字节上限；ffmpeg 的状态行远小于这个值。
const DefaultMaxLine = 256

// ErrLineTooLong 表示在上限内没有遇到行终止符（'\n' 或 '\r'）。
var ErrLineTooLong = errors.New("progress: 行过长（未找到行终止符）")

// LineReader 按 '\n' 或 '\r' 切分字节流。
//
// ffmpeg 的进度行以 '\r' 原地刷新，普通日志以 '\n' 结尾，两者混杂；
// 这里把任意一个都当作行终止符，且不要求两者成对出现。
type LineReader struct {
	br  *bufio.Reader
	max int
	buf []byte
}

func NewLineReader(r io.Reader, max int) *LineReader {
	if max <= 0 {
		max = DefaultMaxLine
	}
	return &LineReader{
		br:  bufio.NewReader(r),
		max: max,
		buf: make([]byte, 0, max),
	}
}

// Next 返回下一段不含终止符的内容。
//
// - 空行（例如 "\r\n" 中间那一段）直接跳过
// - 流结束时若还有残留内容，先返回残留内容，下一次再返回 io.EOF
// - 达到上限仍无终止符：返回包装了 ErrLineTooLong 的错误
//
// 返回的切片在下一次调用前有效。
func (lr *LineReader) Next() ([]byte, error) {
	for {
		lr.buf = lr.buf[:0]
		for {
			c, err := lr.br.ReadByte()
			if err != nil {
				if err == io.EOF && len(lr.buf) > 0 {
					return lr.buf, nil
				}
				return nil, err
			}
			if c == '\n' || c == '\r' {
				break
			}
			if len(lr.buf) >= lr.max {
				return nil, fmt.Errorf("%w：已读取 %d 字节", ErrLineTooLong, len(lr.buf))
			}
			lr.buf = append(lr.buf, c)
		}
		if len(lr.buf) > 0 {
			return lr.buf, nil
		}
	}
}
