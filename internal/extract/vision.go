// Package extract turns claim artifacts into structured evidence records.
// Both extractors share one contract: fixed instruction, fixed output
// schema, one model call per artifact, and every failure converted locally
// into an empty record so one bad file cannot fail the batch.
package extract

import (
	"context"

	"github.com/openclaims/claimlens/internal/jsonx"
	"github.com/openclaims/claimlens/internal/llm"
	"github.com/openclaims/claimlens/internal/logger"
	"github.com/openclaims/claimlens/internal/model"
)

// Backend is the single-call model interface both extractors use.
type Backend interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (string, error)
}

const visionSystemPrompt = "You are an insurance claim vision analyst. " +
	"You look at photos of vehicles and describe observable facts only. " +
	"Respond with a single JSON object and nothing else."

const visionUserPrompt = `Examine the attached photo of a vehicle involved in an insurance claim.

Return a JSON object with exactly these keys, using null for anything you cannot determine:
{
  "vehicleColor": string or null,
  "vehicleModel": string or null,
  "plateNumber": string or null,
  "damageArea": string or null,
  "damageDescription": string or null
}`

var visionSchemaKeys = []string{
	"vehicleColor", "vehicleModel", "plateNumber", "damageArea", "damageDescription",
}

// VisionExtractor produces a VisionRecord per image artifact.
type VisionExtractor struct {
	log     *logger.Logger
	backend Backend
}

// NewVisionExtractor creates a vision extractor.
func NewVisionExtractor(log *logger.Logger, backend Backend) *VisionExtractor {
	return &VisionExtractor{
		log:     log.With("component", "extract.vision"),
		backend: backend,
	}
}

// Extract analyzes one image. It never returns an error: network failures,
// malformed responses and schema mismatches all collapse into the empty
// record for this artifact.
func (e *VisionExtractor) Extract(ctx context.Context, data []byte, mimeHint string, sourceKey string) model.VisionRecord {
	raw, err := e.backend.Complete(ctx, llm.CompletionRequest{
		System: visionSystemPrompt,
		User:   visionUserPrompt,
		Images: []llm.ImageInput{{MimeType: mimeHint, Data: data}},
	})
	if err != nil {
		e.log.Warn("vision extraction failed", "key", sourceKey, "error", err)
		return model.EmptyVisionRecord(sourceKey)
	}

	obj, err := jsonx.ExtractObject(raw)
	if err != nil {
		e.log.Warn("vision response had no JSON object", "key", sourceKey, "error", err)
		return model.EmptyVisionRecord(sourceKey)
	}

	// A payload that misses schema keys is still used field-by-field:
	// partial data beats strict rejection here.
	if !jsonx.HasKeys(obj, visionSchemaKeys...) {
		e.log.Debug("vision payload missed schema keys, using best effort", "key", sourceKey)
	}

	return model.VisionRecord{
		VehicleColor:      jsonx.OptionalString(obj, "vehicleColor"),
		VehicleModel:      jsonx.OptionalString(obj, "vehicleModel"),
		PlateNumber:       jsonx.OptionalString(obj, "plateNumber"),
		DamageArea:        jsonx.OptionalString(obj, "damageArea"),
		DamageDescription: jsonx.OptionalString(obj, "damageDescription"),
		SourceKey:         sourceKey,
	}
}
