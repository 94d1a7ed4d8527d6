package model

// VisionRecord holds the attributes observed in one image artifact.
// Every field is independently optional: a nil field means the model could
// not determine that attribute, and never blocks downstream stages.
type VisionRecord struct {
	VehicleColor      *string `json:"vehicleColor"`
	VehicleModel      *string `json:"vehicleModel"`
	PlateNumber       *string `json:"plateNumber"`
	DamageArea        *string `json:"damageArea"`
	DamageDescription *string `json:"damageDescription"`

	// SourceKey is the artifact the record was extracted from.
	SourceKey string `json:"sourceKey,omitempty"`
}

// EmptyVisionRecord is the processed-with-empty-result record used when
// extraction fails for one image. The artifact stays accounted for; the
// batch does not.
func EmptyVisionRecord(sourceKey string) VisionRecord {
	return VisionRecord{SourceKey: sourceKey}
}

// IsEmpty reports whether no attribute was extracted.
func (r VisionRecord) IsEmpty() bool {
	return r.VehicleColor == nil &&
		r.VehicleModel == nil &&
		r.PlateNumber == nil &&
		r.DamageArea == nil &&
		r.DamageDescription == nil
}

// DocumentRecord holds the text and structured fields extracted from one
// document artifact. Fields values are nullable and loosely typed because
// they cross an untyped model boundary.
type DocumentRecord struct {
	RawText string         `json:"rawText"`
	Fields  map[string]any `json:"extractedFields"`

	SourceKey string `json:"sourceKey,omitempty"`
}

// EmptyDocumentRecord is the processed-with-empty-result counterpart for
// documents.
func EmptyDocumentRecord(sourceKey string) DocumentRecord {
	return DocumentRecord{Fields: map[string]any{}, SourceKey: sourceKey}
}

// IsEmpty reports whether neither text nor fields were extracted.
func (r DocumentRecord) IsEmpty() bool {
	return r.RawText == "" && len(r.Fields) == 0
}
