package internal

import "encoding/json"

type DocumentSource string

const (
	SourcePDFCatalog     DocumentSource = "pdf_catalog"
	SourceHTMLPage       DocumentSource = "html_page"
	SourceMailAttachment DocumentSource = "mail_attachment"
	SourceMailHTML       DocumentSource = "mail_html"
)

// ExtractedRecord is one candidate product recovered from a supplier
// document. The JSON field names are the source-field names the mapping
// layer addresses.
type ExtractedRecord struct {
	ProductName               string            `json:"productName"`
	URL                       *string           `json:"url,omitempty"`
	ArticleNumber             *string           `json:"articleNumber,omitempty"`
	ManufacturerArticleNumber *string           `json:"manufacturerArticleNumber,omitempty"`
	EANCode                   *string           `json:"eanCode,omitempty"`
	EKPrice                   *string           `json:"ekPrice,omitempty"`
	Description               *string           `json:"description,omitempty"`
	Marke                     *string           `json:"marke,omitempty"`
	VE                        *string           `json:"ve,omitempty"`
	Liefermenge               string            `json:"liefermenge"`
	LiefermengeDefaulted      bool              `json:"liefermengeDefaulted,omitempty"`
	TechnicalSpecs            map[string]string `json:"technicalSpecs,omitempty"`
	Bullets                   []string          `json:"bullets,omitempty"`
	SupplierTableHTML         *string           `json:"supplierTableHtml,omitempty"`
	Confidence                float64           `json:"confidence"`
}

// Fields flattens the record into the addressable form the mapping engine
// and the field catalog operate on.
func (r ExtractedRecord) Fields() map[string]any {
	blob, err := json.Marshal(r)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	if err := json.Unmarshal(blob, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// CustomAttribute is one side-channel value written by the enrichment step
// and consumed read-only by the mapping engine.
type CustomAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

type SupplierRow struct {
	ID        int
	Name      string
	CreatedAt string
}

type DocumentRow struct {
	ID         int
	SupplierID int
	Source     DocumentSource
	Origin     string
	Filename   string
	Hash       string
	Status     string
	RawRef     string
}

type RecordRow struct {
	ID            int
	DocumentID    int
	SupplierID    int
	URL           *string
	ArticleNumber *string
	EANCode       *string
	Confidence    float64
	DataJSON      string
	Attributes    []CustomAttribute
}

type MailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Status     string
	RawRef     string
}

type InboundMail struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}
