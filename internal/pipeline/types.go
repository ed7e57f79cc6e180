package pipeline

import (
	"fmt"
	"image"
)

// Category selects which body region the garment is applied to.
type Category string

const (
	CategoryTops      Category = "tops"
	CategoryBottoms   Category = "bottoms"
	CategoryOnePieces Category = "one-pieces"
)

// Categories lists the accepted categories in declaration order.
var Categories = []Category{CategoryTops, CategoryBottoms, CategoryOnePieces}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// GarmentPhotoType describes how the garment image was captured.
type GarmentPhotoType string

const (
	GarmentPhotoModel   GarmentPhotoType = "model"
	GarmentPhotoFlatLay GarmentPhotoType = "flat-lay"
)

// GarmentPhotoTypes lists the accepted garment photo types.
var GarmentPhotoTypes = []GarmentPhotoType{GarmentPhotoModel, GarmentPhotoFlatLay}

func (g GarmentPhotoType) Valid() bool {
	for _, v := range GarmentPhotoTypes {
		if g == v {
			return true
		}
	}
	return false
}

// Parameter bounds and defaults.
const (
	MinTimesteps = 10
	MaxTimesteps = 50

	MinGuidanceScale = 1.0
	MaxGuidanceScale = 3.0

	DefaultTimesteps     = 30
	DefaultGuidanceScale = 1.5
	DefaultSeed          = 42
)

// Params are the scalar generation parameters of one try-on call.
type Params struct {
	Category         Category
	GarmentPhotoType GarmentPhotoType
	NumTimesteps     int
	GuidanceScale    float64
	Seed             int64
}

// DefaultParams returns the parameters used when a request omits a field.
func DefaultParams() Params {
	return Params{
		Category:         CategoryTops,
		GarmentPhotoType: GarmentPhotoModel,
		NumTimesteps:     DefaultTimesteps,
		GuidanceScale:    DefaultGuidanceScale,
		Seed:             DefaultSeed,
	}
}

// Validate checks every field against its declared domain. The returned error
// is an InvalidInput naming the first offending field.
func (p Params) Validate() error {
	if !p.Category.Valid() {
		return InvalidInput(fmt.Sprintf("category must be one of %v, got %q", Categories, p.Category))
	}
	if !p.GarmentPhotoType.Valid() {
		return InvalidInput(fmt.Sprintf("garment_photo_type must be one of %v, got %q", GarmentPhotoTypes, p.GarmentPhotoType))
	}
	if p.NumTimesteps < MinTimesteps || p.NumTimesteps > MaxTimesteps {
		return InvalidInput(fmt.Sprintf("num_timesteps must be in [%d, %d], got %d", MinTimesteps, MaxTimesteps, p.NumTimesteps))
	}
	// NaN fails both comparisons, so test the accepted range positively.
	if !(p.GuidanceScale >= MinGuidanceScale && p.GuidanceScale <= MaxGuidanceScale) {
		return InvalidInput(fmt.Sprintf("guidance_scale must be in [%.1f, %.1f], got %v", MinGuidanceScale, MaxGuidanceScale, p.GuidanceScale))
	}
	return nil
}

// Request is a single try-on invocation.
type Request struct {
	Person  *image.NRGBA
	Garment *image.NRGBA
	Params
	// NumSamples is the number of images requested from the runtime.
	NumSamples int
	// RequestID correlates runtime logs with the HTTP request (optional).
	RequestID string
}

// Result holds the images produced by one invocation, in runtime order.
type Result struct {
	Images []image.Image
}
