package cloudinary

import (
	"errors"

	"github.com/cloudinary/cloudinary-go/v2"
)

// New builds a client from a cloudinary:// URL, or from CLOUDINARY_URL when
// cloudinaryURL is empty.
func New(cloudinaryURL string) (*cloudinary.Cloudinary, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	if cloudinaryURL == "" {
		cld, err = cloudinary.New()
	} else {
		cld, err = cloudinary.NewFromURL(cloudinaryURL)
	}
	if err != nil {
		return nil, err
	}
	if cld.Config.Cloud.CloudName == "" {
		return nil, errors.New("cloudinary: cloud name is missing")
	}
	cld.Config.URL.Secure = true
	cld.Config.URL.Analytics = false
	return cld, nil
}
