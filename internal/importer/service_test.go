package importer_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/smsledger/internal/importer"
	"github.com/MrJamesThe3rd/smsledger/internal/importer/backup"
)

const xmlBackup = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<smses count="3">
  <sms address="VM-HDFCBK" date="1704700800000" type="1" body="Rs.500.00 debited from a/c **1234 to SWIGGY" />
  <sms address="+919800000000" date="1704700900000" type="1" body="see you at 5" />
  <sms address="AD-ICICIB" date="1704701000000" type="1" body="INR 99 spent on card XX12" />
</smses>`

func TestService_Import(t *testing.T) {
	type testCase struct {
		name       string
		format     importer.Format
		content    string
		wantBodies []string
		wantErr    bool
	}

	tests := []testCase{
		{
			name:    "auto detects xml",
			format:  importer.FormatAuto,
			content: "\n  " + xmlBackup,
			wantBodies: []string{
				"Rs.500.00 debited from a/c **1234 to SWIGGY",
				"INR 99 spent on card XX12",
			},
		},
		{
			name:       "auto detects csv",
			format:     importer.FormatAuto,
			content:    "address,body\nVM-HDFCBK,Rs 10 debited\nMOM,call me\n",
			wantBodies: []string{"Rs 10 debited"},
		},
		{
			name:       "auto falls back to text",
			format:     importer.FormatAuto,
			content:    "Rs 10 credited to a/c XX1\n\nhello there\n",
			wantBodies: []string{"Rs 10 credited to a/c XX1"},
		},
		{
			name:    "unknown format",
			format:  importer.Format("pdf"),
			content: "x",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := importer.NewService(0).Import(tt.format, strings.NewReader(tt.content))
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantBodies, backup.Bodies(got))
		})
	}
}

func TestService_Import_Latin1XML(t *testing.T) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="ISO-8859-1"?><smses>`)
	buf.WriteString(`<sms address="VM-HDFCBK" type="1" body="Rs 120 debited at Caf`)
	buf.WriteByte(0xE9)
	buf.WriteString(` Madras from a/c XX1" /></smses>`)

	got, err := importer.NewService(0).Import(importer.FormatXML, &buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Rs 120 debited at Café Madras from a/c XX1", got[0].Body)
}

func TestService_Import_TooMany(t *testing.T) {
	content := "Rs 1 debited from a/c\n\nRs 2 debited from a/c\n\nRs 3 debited from a/c\n"

	_, err := importer.NewService(2).Import(importer.FormatText, strings.NewReader(content))
	require.ErrorIs(t, err, importer.ErrTooManyMessages)

	got, err := importer.NewService(3).Import(importer.FormatText, strings.NewReader(content))
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
