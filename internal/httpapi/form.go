package httpapi

import (
	"errors"
	"fmt"
	"image"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"vtond/internal/pipeline"
)

// Parts larger than this are spooled to temp files by ParseMultipartForm.
const formMemoryBytes = 8 << 20

// parseTryOnForm reads the multipart try-on form. Scalar fields and the presence of
// both files are checked before either image is decoded.
func parseTryOnForm(r *http.Request, opts pipeline.DecodeOptions) (pipeline.Request, error) {
	var req pipeline.Request
	if err := r.ParseMultipartForm(formMemoryBytes); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return req, pipeline.InvalidInput(fmt.Sprintf("request body exceeds %d bytes", mbe.Limit))
		}
		return req, pipeline.InvalidInput("invalid multipart form: " + err.Error())
	}
	form := r.MultipartForm
	defer func() { _ = form.RemoveAll() }()

	personFH, err := formFile(form, "person_image")
	if err != nil {
		return req, err
	}
	garmentFH, err := formFile(form, "garment_image")
	if err != nil {
		return req, err
	}
	params, err := parseParams(form.Value)
	if err != nil {
		return req, err
	}
	if err := params.Validate(); err != nil {
		return req, err
	}

	person, err := decodeUpload(personFH, opts)
	if err != nil {
		return req, err
	}
	garment, err := decodeUpload(garmentFH, opts)
	if err != nil {
		return req, err
	}
	return pipeline.Request{
		Person:     person,
		Garment:    garment,
		Params:     params,
		NumSamples: 1,
	}, nil
}

func formFile(form *multipart.Form, name string) (*multipart.FileHeader, error) {
	fhs := form.File[name]
	if len(fhs) == 0 {
		return nil, pipeline.InvalidInput(name + " is required")
	}
	return fhs[0], nil
}

// formValue returns the first non-blank value for key.
func formValue(values map[string][]string, key string) (string, bool) {
	vs := values[key]
	if len(vs) == 0 {
		return "", false
	}
	v := strings.TrimSpace(vs[0])
	return v, v != ""
}

// parseParams applies defaults for absent fields and rejects unparsable numbers.
// Domain checks are left to Params.Validate.
func parseParams(values map[string][]string) (pipeline.Params, error) {
	p := pipeline.DefaultParams()
	if v, ok := formValue(values, "category"); ok {
		p.Category = pipeline.Category(v)
	}
	if v, ok := formValue(values, "garment_photo_type"); ok {
		p.GarmentPhotoType = pipeline.GarmentPhotoType(v)
	}
	if v, ok := formValue(values, "num_timesteps"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, pipeline.InvalidInput(fmt.Sprintf("num_timesteps must be an integer, got %q", v))
		}
		p.NumTimesteps = n
	}
	if v, ok := formValue(values, "guidance_scale"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, pipeline.InvalidInput(fmt.Sprintf("guidance_scale must be a number, got %q", v))
		}
		p.GuidanceScale = f
	}
	if v, ok := formValue(values, "seed"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return p, pipeline.InvalidInput(fmt.Sprintf("seed must be an integer, got %q", v))
		}
		p.Seed = n
	}
	return p, nil
}

func decodeUpload(fh *multipart.FileHeader, opts pipeline.DecodeOptions) (*image.NRGBA, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, pipeline.InvalidInput("Invalid image: " + err.Error())
	}
	defer f.Close()
	img, err := pipeline.DecodeRGB(f, opts)
	if err != nil {
		return nil, pipeline.InvalidInput("Invalid image: " + err.Error())
	}
	return img, nil
}
