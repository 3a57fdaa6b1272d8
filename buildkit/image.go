package buildkit

import specs "github.com/opencontainers/image-spec/specs-go/v1"

// Image is the `application/vnd.oci.image.config.v1+json` payload attached to
// the exported image
type Image struct {
	specs.Image

	// Config defines the execution parameters used as a base when running a
	// container from the image
	Config specs.ImageConfig `json:"config,omitempty"`

	// Variant defines platform variant. To be added to OCI.
	Variant string `json:"variant,omitempty"`
}
