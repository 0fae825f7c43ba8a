package crawler

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestDeriveFilename(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantName string
		wantExt  string
	}{
		{
			name:     "plain csv",
			url:      "https://x/stations.csv",
			wantName: "stations.csv",
			wantExt:  "csv",
		},
		{
			name:     "nested folder",
			url:      "https://static.data.gouv.fr/resources/irve/folder/data.csv",
			wantName: "data.csv",
			wantExt:  "csv",
		},
		{
			name:     "CKAN export",
			url:      "https://ckan.example/dataset/abc/resource/xyz/download?format=csv",
			wantName: "xyz.csv",
			wantExt:  "csv",
		},
		{
			name:     "OpenDataSoft export with trailing slash",
			url:      "https://ods.example/explore/dataset/bornes-irve/download/?format=csv&timezone=Europe/Berlin",
			wantName: "bornes-irve.csv",
			wantExt:  "csv",
		},
		{
			name:     "OpenDataSoft export without trailing slash",
			url:      "https://ods.example/explore/dataset/bornes-irve/download?format=csv",
			wantName: "bornes-irve.csv",
			wantExt:  "csv",
		},
		{
			name:     "uppercase extension is not csv",
			url:      "https://x/STATIONS.CSV",
			wantName: "STATIONS.CSV",
			wantExt:  "CSV",
		},
		{
			name:     "json resource",
			url:      "https://x/api/stations.json",
			wantName: "stations.json",
			wantExt:  "json",
		},
		{
			name:     "query string kept verbatim",
			url:      "https://x/data.csv?version=2",
			wantName: "data.csv?version=2",
			wantExt:  "csv?version=2",
		},
		{
			name:     "no extension",
			url:      "https://x/download",
			wantName: "download",
			wantExt:  "download",
		},
		{
			name:     "trailing slash",
			url:      "https://x/folder/",
			wantName: "",
			wantExt:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotName, gotExt := DeriveFilename(tt.url)
			if gotName != tt.wantName {
				t.Errorf("DeriveFilename(%q) name = %q, want %q", tt.url, gotName, tt.wantName)
			}

			if gotExt != tt.wantExt {
				t.Errorf("DeriveFilename(%q) ext = %q, want %q", tt.url, gotExt, tt.wantExt)
			}
		})
	}
}

func TestIsCSV(t *testing.T) {
	for ext, want := range map[string]bool{"csv": true, "CSV": false, "Csv": false, "xlsx": false, "": false} {
		if got := IsCSV(ext); got != want {
			t.Errorf("IsCSV(%q) = %v, want %v", ext, got, want)
		}
	}
}

func TestResourcePath(t *testing.T) {
	got := ResourcePath(filepath.Join("data", "20240101"), "acme-stations", "7", "csv")
	want := filepath.Join("data", "20240101", "acme-stations", "7.csv")

	if got != want {
		t.Errorf("ResourcePath = %s, want %s", got, want)
	}
}

func TestCheckPathSegment(t *testing.T) {
	tests := []struct {
		segment string
		wantErr bool
	}{
		{segment: "acme-stations", wantErr: false},
		{segment: "7", wantErr: false},
		{segment: "5b2a.v2", wantErr: false},
		{segment: "", wantErr: true},
		{segment: ".", wantErr: true},
		{segment: "..", wantErr: true},
		{segment: "../pwn", wantErr: true},
		{segment: "a/b", wantErr: true},
		{segment: `a\b`, wantErr: true},
		{segment: "x..y", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.segment, func(t *testing.T) {
			err := CheckPathSegment(tt.segment)
			if tt.wantErr && !errors.Is(err, ErrUnsafePathSegment) {
				t.Errorf("CheckPathSegment(%q) = %v, want ErrUnsafePathSegment", tt.segment, err)
			}

			if !tt.wantErr && err != nil {
				t.Errorf("CheckPathSegment(%q) unexpected error: %v", tt.segment, err)
			}
		})
	}
}
