package domain

// DefaultSourceMIME is used when an archived file has no content type
const DefaultSourceMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SourceFile is a base64 copy of an uploaded workbook kept for archival
type SourceFile struct {
	Name   string `json:"name"`
	MIME   string `json:"mime"`
	Base64 string `json:"base64"`
}

// Payload is what the pipeline hands to a Sink. Field names are the wire
// contract of the remote sheet store.
type Payload struct {
	Secret     string      `json:"secret"`
	SheetID    string      `json:"sheetId"`
	Results    Table       `json:"resultats"`
	Scaled     Table       `json:"ml"`
	SaveSource bool        `json:"saveSuivi"`
	SourceFile *SourceFile `json:"suiviFile"`
}
