package audio

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
)

// FFmpegDecoder pipes the input through an ffmpeg process. It accepts any
// container ffmpeg understands.
type FFmpegDecoder struct {
	Path string
}

func (d *FFmpegDecoder) Decode(ctx context.Context, r io.Reader) (io.ReadCloser, error) {
	path := d.Path
	if path == "" {
		path = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, path,
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"-loglevel", "warning",
		"pipe:1",
	)
	cmd.Stdin = r

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("command start error: %w", err)
	}

	return &processReader{ReadCloser: stdout, cmd: cmd}, nil
}

type processReader struct {
	io.ReadCloser
	cmd *exec.Cmd
}

// Close stops ffmpeg if it is still running and reaps it.
func (p *processReader) Close() error {
	_ = p.ReadCloser.Close()
	if p.cmd.ProcessState == nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	_ = p.cmd.Wait()
	return nil
}
