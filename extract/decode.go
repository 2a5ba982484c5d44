package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/aaronland/go-image-tools/util"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"github.com/rwcarlsen/goexif/tiff"
	"github.com/sfomuseum/go-image-locator/gps"
	"gocloud.dev/blob"
)

func init() {
	exif.RegisterParsers(mknote.All...)
}

// DecodeExtractor fully decodes an image before reading its EXIF container with
// rwcarlsen/goexif. Files that are not decodable images are rejected outright.
type DecodeExtractor struct {
	Extractor
}

func NewDecodeExtractor() Extractor {
	return &DecodeExtractor{}
}

func (e *DecodeExtractor) Name() string {
	return "decode"
}

func (e *DecodeExtractor) Extract(ctx context.Context, bucket *blob.Bucket, key string) (gps.TagSet, error) {

	x, err := e.decode(ctx, bucket, key)

	if err != nil {
		return nil, err
	}

	tags := gps.TagSet{}

	if x == nil {
		return tags, nil
	}

	w := &gpsWalker{
		tags: tags,
	}

	err = x.Walk(w)

	if err != nil {
		return nil, fmt.Errorf("%w, failed to walk tags for %s, %w", gps.ErrMalformedTag, key, err)
	}

	return tags, nil
}

func (e *DecodeExtractor) Index(ctx context.Context, bucket *blob.Bucket, key string) (TagIndex, error) {

	x, err := e.decode(ctx, bucket, key)

	if err != nil {
		return nil, err
	}

	idx := TagIndex{}

	if x == nil {
		return idx, nil
	}

	w := &indexWalker{
		index: idx,
	}

	err = x.Walk(w)

	if err != nil {
		return nil, fmt.Errorf("%w, failed to walk tags for %s, %w", gps.ErrMalformedTag, key, err)
	}

	return idx, nil
}

// decode returns a nil *exif.Exif (and no error) for a valid image without EXIF data.
func (e *DecodeExtractor) decode(ctx context.Context, bucket *blob.Bucket, key string) (*exif.Exif, error) {

	body, err := readAll(ctx, bucket, key)

	if err != nil {
		return nil, err
	}

	_, _, err = util.DecodeImageFromReader(bytes.NewReader(body))

	if err != nil {
		return nil, fmt.Errorf("%w, failed to decode image %s, %w", gps.ErrMalformedTag, key, err)
	}

	if !bytes.Contains(body, []byte("Exif\x00\x00")) && !isTIFF(body) {
		return nil, nil
	}

	x, err := exif.Decode(bytes.NewReader(body))

	// Missing EXIF is not a fault; anything else in the container is. Non-critical
	// errors (for example a broken maker note) still leave x usable.

	switch {
	case err == nil:
		return x, nil
	case errors.Is(err, io.EOF):
		return nil, nil
	case exif.IsCriticalError(err) || x == nil:
		return nil, fmt.Errorf("%w, failed to decode EXIF for %s, %w", gps.ErrMalformedTag, key, err)
	default:
		return x, nil
	}
}

func isTIFF(body []byte) bool {
	return bytes.HasPrefix(body, []byte("II*\x00")) || bytes.HasPrefix(body, []byte("MM\x00*"))
}

type gpsWalker struct {
	tags gps.TagSet
}

func (w *gpsWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {

	if !strings.HasPrefix(string(name), "GPS") {
		return nil
	}

	switch tag.Format() {
	case tiff.StringVal:

		str, err := tag.StringVal()

		if err != nil {
			return nil
		}

		w.tags[string(name)] = gps.TagValue{Ref: cleanString(str)}

	case tiff.RatVal:

		rats := make([]gps.Rational, 0, tag.Count)

		for i := 0; i < int(tag.Count); i++ {

			num, den, err := tag.Rat2(i)

			if err != nil {
				return nil
			}

			rats = append(rats, gps.Rational{Numerator: num, Denominator: den})
		}

		w.tags[string(name)] = gps.TagValue{Rationals: rats}

	default:
		// pass
	}

	return nil
}

type indexWalker struct {
	index TagIndex
}

func (w *indexWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {

	switch {
	case strings.HasPrefix(string(name), "GPS"), strings.HasPrefix(string(name), "Interoperability"):
		return nil
	}

	_, exists := w.index[tag.Id]

	if exists {
		return nil
	}

	switch tag.Format() {
	case tiff.StringVal:

		str, err := tag.StringVal()

		if err == nil {
			w.index[tag.Id] = cleanString(str)
		}

	case tiff.RatVal:

		parts := make([]string, 0, tag.Count)

		for i := 0; i < int(tag.Count); i++ {

			num, den, err := tag.Rat2(i)

			if err != nil {
				return nil
			}

			parts = append(parts, FormatRational(num, den))
		}

		w.index[tag.Id] = strings.Join(parts, " ")

	case tiff.IntVal:

		values := make([]int, 0, tag.Count)

		for i := 0; i < int(tag.Count); i++ {

			v, err := tag.Int(i)

			if err != nil {
				return nil
			}

			values = append(values, v)
		}

		w.index[tag.Id] = joinInts(values)

	default:
		// pass
	}

	return nil
}
