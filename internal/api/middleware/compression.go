// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package middleware

import (
	"net/http"

	"github.com/CAFxX/httpcompression"
	cbrotli "github.com/CAFxX/httpcompression/contrib/andybalholm/brotli"
	cgzip "github.com/CAFxX/httpcompression/contrib/klauspost/gzip"
	czstd "github.com/CAFxX/httpcompression/contrib/klauspost/zstd"
	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// compressMinSize keeps small JSON bodies such as /api/status uncompressed.
const compressMinSize = 1024

// Compress negotiates zstd, brotli or gzip for JSON and YAML responses.
func Compress() (func(http.Handler) http.Handler, error) {
	zstdEnc, err := czstd.New(zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}

	brotliEnc, err := cbrotli.New(brotli.WriterOptions{Quality: 4})
	if err != nil {
		return nil, err
	}

	gzipEnc, err := cgzip.New(cgzip.Options{Level: gzip.DefaultCompression})
	if err != nil {
		return nil, err
	}

	return httpcompression.Adapter(
		httpcompression.Compressor(czstd.Encoding, 2, zstdEnc),
		httpcompression.Compressor(cbrotli.Encoding, 1, brotliEnc),
		httpcompression.Compressor(cgzip.Encoding, 0, gzipEnc),
		httpcompression.MinSize(compressMinSize),
		httpcompression.ContentTypes([]string{
			"application/json",
			"application/yaml",
			"text/plain",
		}, false),
	)
}
