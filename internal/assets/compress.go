package assets

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/buildcfg/internal/telemetry"
)

// compressMinBytes is the smallest output worth precompressing.
const compressMinBytes = 1024

var compressibleExts = []string{".js", ".css", ".html", ".svg", ".json"}

type encoder struct {
	ext string
	new func(w io.Writer) (io.WriteCloser, error)
}

var encoders = []encoder{
	{ext: ".gz", new: func(w io.Writer) (io.WriteCloser, error) {
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	}},
	{ext: ".zst", new: func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	}},
}

// compressOutputs writes gzip and zstd siblings of every compressible file.
func compressOutputs(ctx context.Context, paths []string) ([]string, error) {
	var written []string
	for _, path := range paths {
		if !slices.Contains(compressibleExts, filepath.Ext(path)) {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return written, fmt.Errorf("failed to stat output: %w", err)
		}
		if info.Size() < compressMinBytes {
			continue
		}

		for _, enc := range encoders {
			dstPath := path + enc.ext
			size, err := compressFile(path, dstPath, enc)
			if err != nil {
				return written, err
			}
			written = append(written, dstPath)
			telemetry.GetMetrics().CompressedBytesTotal.Add(ctx, size)

			ratio := 0.0
			if info.Size() > 0 {
				ratio = (1.0 - float64(size)/float64(info.Size())) * 100
			}
			log.Debug().
				Str("path", dstPath).
				Int64("original_bytes", info.Size()).
				Int64("compressed_bytes", size).
				Float64("compression_ratio_pct", ratio).
				Msg("Compressed output")
		}
	}
	return written, nil
}

func compressFile(srcPath, dstPath string, enc encoder) (int64, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open output: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create compressed output: %w", err)
	}
	defer dst.Close()

	w, err := enc.new(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create encoder: %w", err)
	}

	if _, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		_ = dst.Close()
		os.Remove(dstPath)
		return 0, fmt.Errorf("failed to compress: %w", err)
	}
	if err := w.Close(); err != nil {
		_ = dst.Close()
		os.Remove(dstPath)
		return 0, fmt.Errorf("failed to close encoder: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dstPath)
		return 0, fmt.Errorf("failed to close compressed output: %w", err)
	}

	info, err := os.Stat(dstPath)
	if err != nil {
		return 0, fmt.Errorf("failed to stat compressed output: %w", err)
	}
	return info.Size(), nil
}
