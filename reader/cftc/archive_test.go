package cftc

import (
	"archive/zip"
	"bytes"
	"testing"
)

func zipArchive(t *testing.T, members map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create member %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write member %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return buf.Bytes()
}

func TestExtractRecords(t *testing.T) {
	csvBody := "Market_and_Exchange_Names,CFTC_Contract_MarketCode,NonComm_Positions_Long_All\n" +
		"\"EURO FX - CHICAGO MERCANTILE EXCHANGE\",099741, 1234 \n" +
		"\"BRITISH POUND - CHICAGO MERCANTILE EXCHANGE\",096742,567\n"

	data := zipArchive(t, map[string]string{"annual.txt": csvBody})
	records := ExtractRecords(data)

	if len(records) != 2 {
		t.Fatalf("records: got %d, want 2", len(records))
	}
	if got := records[0]["CFTC_Contract_MarketCode"]; got != "099741" {
		t.Errorf("market code: got %q", got)
	}
	if got := records[0]["NonComm_Positions_Long_All"]; got != "1234" {
		t.Errorf("values must be trimmed: got %q", got)
	}
	if got := records[1]["Market_and_Exchange_Names"]; got != "BRITISH POUND - CHICAGO MERCANTILE EXCHANGE" {
		t.Errorf("quoted name: got %q", got)
	}
}

func TestExtractRecordsRaggedRows(t *testing.T) {
	csvBody := "Date,Code,Long\n" +
		"2026-08-18,099741\n" + // short row
		"2026-08-11,099741,500,extra\n" // long row

	data := zipArchive(t, map[string]string{"report.csv": csvBody})
	records := ExtractRecords(data)

	if len(records) != 2 {
		t.Fatalf("records: got %d, want 2", len(records))
	}
	if got, ok := records[0]["Long"]; ok {
		t.Errorf("short row must omit missing columns, got %q", got)
	}
	if got := records[1]["Long"]; got != "500" {
		t.Errorf("long row: got %q, want 500", got)
	}
}

func TestExtractRecordsSkipsNonTabularMembers(t *testing.T) {
	data := zipArchive(t, map[string]string{
		"readme.pdf": "not a table",
	})
	if records := ExtractRecords(data); len(records) != 0 {
		t.Errorf("archive without tabular member: got %d records, want 0", len(records))
	}
}

func TestExtractRecordsCorruptArchive(t *testing.T) {
	if records := ExtractRecords([]byte("definitely not a zip")); len(records) != 0 {
		t.Errorf("corrupt archive: got %d records, want 0", len(records))
	}
}

func TestExtractRecordsHeaderOnly(t *testing.T) {
	data := zipArchive(t, map[string]string{"empty.txt": "Date,Code\n"})
	if records := ExtractRecords(data); len(records) != 0 {
		t.Errorf("header-only member: got %d records, want 0", len(records))
	}
}
