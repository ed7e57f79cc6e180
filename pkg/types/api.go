package types

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// "ok" when the pipeline is loaded, "unhealthy" otherwise.
	// example: ok
	Status string `json:"status" example:"ok"`
	// Directory the pipeline weights were loaded from (only when healthy).
	// example: /weights
	WeightsDir string `json:"weights_dir,omitempty" example:"/weights"`
	// Reason the service is unhealthy.
	// example: Pipeline not loaded
	Detail string `json:"detail,omitempty" example:"Pipeline not loaded"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: Invalid image: image: unknown format
	Detail string `json:"detail" example:"Invalid image: image: unknown format"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// TryOnParams documents the scalar fields of the POST /try-on multipart form.
// The person_image and garment_image file parts are required alongside them.
type TryOnParams struct {
	// Garment category.
	// example: tops
	Category string `json:"category" example:"tops" enums:"tops,bottoms,one-pieces"`
	// How the garment is photographed.
	// example: model
	GarmentPhotoType string `json:"garment_photo_type" example:"model" enums:"model,flat-lay"`
	// Diffusion steps, 10..50.
	// example: 30
	NumTimesteps int `json:"num_timesteps" example:"30" minimum:"10" maximum:"50"`
	// Classifier-free guidance strength, 1.0..3.0.
	// example: 1.5
	GuidanceScale float64 `json:"guidance_scale" example:"1.5" minimum:"1.0" maximum:"3.0"`
	// Random seed.
	// example: 42
	Seed int64 `json:"seed" example:"42"`
}
