package cmd

import (
	"bytes"
	"fmt"
	"io"
)

// countFastqReads counts records in a plain or gzipped FASTQ file. FASTQ is
// four lines per record; a trailing unterminated line still counts.
func countFastqReads(path string) (int64, error) {
	in, err := openInput(path)
	if err != nil {
		return 0, fmt.Errorf("open fastq: %w", err)
	}
	defer func() {
		_ = in.Close()
	}()

	buf := make([]byte, 1024*1024)
	var lines int64
	var lastByte byte
	for {
		n, err := in.Read(buf)
		if n > 0 {
			lines += int64(bytes.Count(buf[:n], []byte{'\n'}))
			lastByte = buf[n-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read fastq: %w", err)
		}
	}
	if lastByte != '\n' && lines > 0 {
		lines++
	}
	return lines / 4, nil
}
