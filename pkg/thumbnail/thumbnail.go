// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package thumbnail decodes a main-image file and writes a downscaled JPEG
// preview alongside a tile's structured output.
//
// No image-processing library in the retrieved dependency set exercises a
// resize path (billingcat-crm's pdfutil.go references only the "image"
// package behind a !cgo build tag with no real implementation), so this
// package is built on the standard library image/image/jpeg stack rather
// than a third-party resizer — see the design notes for the full rationale.
package thumbnail

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/kraklabs/rdesys/internal/rdeerrors"
)

// MaxDimension bounds the longest side of a generated thumbnail, in pixels.
const MaxDimension = 256

// imageExtensions is the set of input suffixes ThumbnailGenerator will
// attempt to decode.
var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
}

// IsImage reports whether path's extension is one this package can decode.
func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// Generate decodes srcPath and writes a resized JPEG thumbnail to destPath,
// creating destPath's parent directory if needed.
func Generate(srcPath, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return rdeerrors.NewIOError("Cannot open image for thumbnail", err.Error(), "", err)
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		return rdeerrors.NewIOError("Cannot decode image", fmt.Sprintf("failed to decode %s", srcPath), "check that the file is a valid PNG/JPEG/GIF", err)
	}

	scaled := resize(img, MaxDimension)

	if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
		return rdeerrors.NewIOError("Cannot create thumbnail directory", err.Error(), "", err)
	}
	dst, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return rdeerrors.NewIOError("Cannot create thumbnail file", err.Error(), "", err)
	}
	defer dst.Close()

	if err := jpeg.Encode(dst, scaled, &jpeg.Options{Quality: 85}); err != nil {
		return rdeerrors.NewIOError("Cannot encode thumbnail", err.Error(), "", err)
	}
	return nil
}

// resize downscales img so its longest side is at most maxDim, using
// nearest-neighbor sampling. Images already within bounds are returned as a
// plain RGBA copy so the caller always gets a concrete image.Image.
func resize(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}

	scale := 1.0
	if w > maxDim || h > maxDim {
		scaleW := float64(maxDim) / float64(w)
		scaleH := float64(maxDim) / float64(h)
		scale = scaleW
		if scaleH < scale {
			scale = scaleH
		}
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	for y := 0; y < newH; y++ {
		srcY := b.Min.Y + y*h/newH
		for x := 0; x < newW; x++ {
			srcX := b.Min.X + x*w/newW
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}
	return dst
}

