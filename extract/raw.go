package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	"github.com/sfomuseum/go-image-locator/gps"
	"gocloud.dev/blob"
)

// RawExtractor scans the raw bytes of a file for an EXIF block using dsoprea/go-exif
// without decoding any image data. It copes with containers other decoders reject.
type RawExtractor struct {
	Extractor
}

func NewRawExtractor() Extractor {
	return &RawExtractor{}
}

func (e *RawExtractor) Name() string {
	return "raw"
}

func (e *RawExtractor) Extract(ctx context.Context, bucket *blob.Bucket, key string) (gps.TagSet, error) {

	entries, err := e.flatTags(ctx, bucket, key)

	if err != nil {
		return nil, err
	}

	tags := gps.TagSet{}

	for _, entry := range entries {

		if !strings.HasPrefix(entry.TagName, "GPS") {
			continue
		}

		v, ok := rawTagValue(entry.Value)

		if !ok {
			continue
		}

		tags[entry.TagName] = v
	}

	return tags, nil
}

func (e *RawExtractor) Index(ctx context.Context, bucket *blob.Bucket, key string) (TagIndex, error) {

	entries, err := e.flatTags(ctx, bucket, key)

	if err != nil {
		return nil, err
	}

	idx := TagIndex{}

	for _, entry := range entries {

		// GPS and interoperability tag ids overlap with each other, and IFD1
		// only describes the thumbnail.

		switch {
		case strings.Contains(entry.IfdPath, "GPSInfo"), strings.Contains(entry.IfdPath, "Iop"), strings.HasPrefix(entry.IfdPath, "IFD1"):
			continue
		}

		_, exists := idx[entry.TagId]

		if exists {
			continue
		}

		str, ok := formatRawValue(entry.Value)

		if !ok {
			continue
		}

		idx[entry.TagId] = str
	}

	return idx, nil
}

func (e *RawExtractor) flatTags(ctx context.Context, bucket *blob.Bucket, key string) (entries []exif.ExifTag, err error) {

	body, err := readAll(ctx, bucket, key)

	if err != nil {
		return nil, err
	}

	// go-exif signals some parse failures by panicking

	defer func() {
		if r := recover(); r != nil {
			entries = nil
			err = fmt.Errorf("%w, panic while scanning %s, %v", gps.ErrMalformedTag, key, r)
		}
	}()

	raw, err := exif.SearchAndExtractExif(body)

	if err != nil {

		if errors.Is(err, exif.ErrNoExif) {
			return []exif.ExifTag{}, nil
		}

		return nil, fmt.Errorf("%w, failed to locate EXIF block in %s, %w", gps.ErrMalformedTag, key, err)
	}

	entries, _, err = exif.GetFlatExifData(raw, nil)

	if err != nil {
		return nil, fmt.Errorf("%w, failed to parse EXIF block in %s, %w", gps.ErrMalformedTag, key, err)
	}

	return entries, nil
}

func rawTagValue(value interface{}) (gps.TagValue, bool) {

	switch v := value.(type) {
	case string:
		return gps.TagValue{Ref: v}, true
	case []exifcommon.Rational:

		rats := make([]gps.Rational, len(v))

		for i, r := range v {
			rats[i] = gps.Rational{
				Numerator:   int64(r.Numerator),
				Denominator: int64(r.Denominator),
			}
		}

		return gps.TagValue{Rationals: rats}, true
	default:
		return gps.TagValue{}, false
	}
}

func formatRawValue(value interface{}) (string, bool) {

	switch v := value.(type) {
	case string:
		return cleanString(v), true
	case []exifcommon.Rational:

		parts := make([]string, len(v))

		for i, r := range v {
			parts[i] = FormatRational(int64(r.Numerator), int64(r.Denominator))
		}

		return strings.Join(parts, " "), true
	case []exifcommon.SignedRational:

		parts := make([]string, len(v))

		for i, r := range v {
			parts[i] = FormatRational(int64(r.Numerator), int64(r.Denominator))
		}

		return strings.Join(parts, " "), true
	case []uint16:
		return joinInts(v), true
	case []uint32:
		return joinInts(v), true
	case []int32:
		return joinInts(v), true
	default:
		return "", false
	}
}
