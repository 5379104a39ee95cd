package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wrangle/internal/memimg"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{path: "firmware.hex", want: FormatHex},
		{path: "dump.vhx", want: FormatVHX},
		{path: "dump.vhx128", want: FormatVHX128},
		{path: "/some/dir/image.hex", want: FormatHex},
		{path: "firmware.bin", wantErr: true},
		{path: "firmware", wantErr: true},
		{path: "archive.hex.gz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := detectFormat(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("detectFormat(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("detectFormat(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		arg     string
		bits    int
		want    uint64
		wantErr bool
	}{
		{arg: "255", bits: 8, want: 255},
		{arg: "0xff", bits: 8, want: 0xFF},
		{arg: "0x08000000", bits: 32, want: 0x08000000},
		{arg: "0", bits: 32, want: 0},
		{arg: "256", bits: 8, wantErr: true},
		{arg: "0x100000000", bits: 32, wantErr: true},
		{arg: "banana", bits: 32, wantErr: true},
		{arg: "-1", bits: 32, wantErr: true},
		{arg: "", bits: 32, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseNumeric(tt.arg, tt.bits)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseNumeric(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("parseNumeric(%q) = %d, want %d", tt.arg, got, tt.want)
			}
		})
	}
}

const sampleHex = `:020000040000FA
:1000000004030201080706050403020108070605A8
:00000001FF
`

func TestConvertRoundTripThroughVHX(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "wrangle-convert-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	hexIn := filepath.Join(tmpDir, "in.hex")
	vhxPath := filepath.Join(tmpDir, "mid.vhx128")
	hexOut := filepath.Join(tmpDir, "out.hex")

	if err := os.WriteFile(hexIn, []byte(sampleHex), 0644); err != nil {
		t.Fatal(err)
	}

	opts := options{
		endianness: memimg.LittleEndian,
		chunkBits:  128,
		fill:       0xFF,
	}

	if err := runConvert(hexIn, vhxPath, opts); err != nil {
		t.Fatalf("hex -> vhx: %v", err)
	}
	if err := runConvert(vhxPath, hexOut, opts); err != nil {
		t.Fatalf("vhx -> hex: %v", err)
	}

	out, err := os.ReadFile(hexOut)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != sampleHex {
		t.Errorf("round trip produced\n%s\nwant\n%s", out, sampleHex)
	}
}

func TestConvertRejectsUnsupportedExtension(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "wrangle-ext-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	input := filepath.Join(tmpDir, "in.hex")
	if err := os.WriteFile(input, []byte(sampleHex), 0644); err != nil {
		t.Fatal(err)
	}

	err = runConvert(input, filepath.Join(tmpDir, "out.bin"), options{
		endianness: memimg.BigEndian,
		chunkBits:  128,
	})
	if err == nil {
		t.Fatal("expected unsupported file type error")
	}
	if !strings.Contains(err.Error(), "unsupported file type") {
		t.Errorf("error = %v, want unsupported file type", err)
	}

	// The output must not have been created by the failed attempt.
	if _, statErr := os.Stat(filepath.Join(tmpDir, "out.bin")); !os.IsNotExist(statErr) {
		t.Error("output file was created despite invalid extension")
	}
}

func TestConvertMissingInput(t *testing.T) {
	err := runConvert("/does/not/exist.hex", "/tmp/never-written.vhx", options{
		endianness: memimg.BigEndian,
		chunkBits:  64,
	})
	if err == nil {
		t.Fatal("expected error for missing input file")
	}
	if !strings.Contains(err.Error(), "exist.hex") {
		t.Errorf("error %q does not name the input file", err)
	}
}

func TestConvertVHXStartAddress(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "wrangle-start-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	vhxIn := filepath.Join(tmpDir, "in.vhx")
	hexOut := filepath.Join(tmpDir, "out.hex")

	if err := os.WriteFile(vhxIn, []byte("0506070801020304\n"), 0644); err != nil {
		t.Fatal(err)
	}

	opts := options{
		endianness:   memimg.BigEndian,
		chunkBits:    64,
		startAddress: 0x00020000,
	}
	if err := runConvert(vhxIn, hexOut, opts); err != nil {
		t.Fatal(err)
	}

	out, err := os.ReadFile(hexOut)
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if lines[0] != ":020000040002F8" {
		t.Errorf("extended address record = %q, want :020000040002F8", lines[0])
	}
}
