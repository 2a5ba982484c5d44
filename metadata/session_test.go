package metadata

import (
	"reflect"
	"testing"

	"github.com/tidwall/gjson"
)

func testRecord(name string, hash string) *Record {

	rec := NewRecord()
	rec.Append(LabelFileName, name)
	rec.Append(LabelGPSData, NoGPSData)
	rec.Append(LabelFileHash, hash)

	return rec
}

func TestSessionOrder(t *testing.T) {

	s := NewSession()

	s.Set("b.jpg", testRecord("b.jpg", "bbb"))
	s.Set("a.jpg", testRecord("a.jpg", "aaa"))
	s.Set("c.jpg", testRecord("c.jpg", "ccc"))

	// Re-processing keeps the original position but replaces the record.
	s.Set("b.jpg", testRecord("b.jpg", "bbb2"))

	expected := []string{"b.jpg", "a.jpg", "c.jpg"}

	if !reflect.DeepEqual(s.Names(), expected) {
		t.Fatalf("Unexpected order %v", s.Names())
	}

	if s.Len() != 3 {
		t.Fatalf("Unexpected length %d", s.Len())
	}

	rec, ok := s.Get("b.jpg")

	if !ok {
		t.Fatalf("Missing record for b.jpg")
	}

	h, _ := rec.Get(LabelFileHash)

	if h != "bbb2" {
		t.Fatalf("Expected replaced record, got hash %s", h)
	}
}

func TestSessionDuplicates(t *testing.T) {

	s := NewSession()

	s.Set("one.jpg", testRecord("one.jpg", "abc"))
	s.Set("two.jpg", testRecord("two.jpg", "def"))
	s.Set("copy.jpg", testRecord("copy.jpg", "abc"))
	s.Set("bad1.jpg", testRecord("bad1.jpg", "Error: boom"))
	s.Set("bad2.jpg", testRecord("bad2.jpg", "Error: boom"))

	dupes := s.Duplicates()

	if len(dupes) != 1 {
		t.Fatalf("Expected one duplicate group, got %d", len(dupes))
	}

	if !reflect.DeepEqual(dupes["abc"], []string{"one.jpg", "copy.jpg"}) {
		t.Fatalf("Unexpected duplicates %v", dupes["abc"])
	}
}

func TestSessionExport(t *testing.T) {

	s := NewSession()

	s.Set("IMG_0001.jpg", testRecord("IMG_0001.jpg", "aaa"))
	s.Set("holiday*.v2.jpg", testRecord("holiday*.v2.jpg", "bbb"))

	body, err := s.Export(nil)

	if err != nil {
		t.Fatalf("Failed to export session, %v", err)
	}

	if gjson.GetBytes(body, "count").Int() != 2 {
		t.Fatalf("Unexpected count in %s", string(body))
	}

	labels := gjson.GetBytes(body, `records.IMG_0001\.jpg.#.label`)

	expected := []string{LabelFileName, LabelGPSData, LabelFileHash}
	found := make([]string, 0)

	for _, l := range labels.Array() {
		found = append(found, l.String())
	}

	if !reflect.DeepEqual(found, expected) {
		t.Fatalf("Unexpected labels %v", found)
	}

	name := gjson.GetBytes(body, `records.holiday\*\.v2\.jpg.0.value`)

	if name.String() != "holiday*.v2.jpg" {
		t.Fatalf("Unexpected file name '%s'", name.String())
	}

	// Merging a second session keeps records from the first.

	s2 := NewSession()
	s2.Set("IMG_0002.jpg", testRecord("IMG_0002.jpg", "ccc"))
	s2.Set("IMG_0001.jpg", testRecord("IMG_0001.jpg", "zzz"))

	body, err = s2.Export(body)

	if err != nil {
		t.Fatalf("Failed to merge session, %v", err)
	}

	if gjson.GetBytes(body, "count").Int() != 3 {
		t.Fatalf("Unexpected count after merge in %s", string(body))
	}

	h := gjson.GetBytes(body, `records.IMG_0001\.jpg.2.value`)

	if h.String() != "zzz" {
		t.Fatalf("Expected record to be replaced, got '%s'", h.String())
	}
}

func TestRecordAppend(t *testing.T) {

	rec := NewRecord()
	rec.Append(LabelBrand, "")

	v, ok := rec.Get(LabelBrand)

	if !ok || v != NotAvailable {
		t.Fatalf("Expected empty value to become sentinel, got '%s'", v)
	}

	if rec.String() != "Brand: N/A\n" {
		t.Fatalf("Unexpected string '%s'", rec.String())
	}
}
