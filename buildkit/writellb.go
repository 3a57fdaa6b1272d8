package buildkit

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/basefab/basefab/core/plan"
	"github.com/charmbracelet/log"
	"github.com/moby/buildkit/client/llb"
	"github.com/moby/buildkit/util/appcontext"
)

// WriteLLB compiles the plan and writes the marshaled LLB definition to out,
// ready to pipe into `buildctl build`
func WriteLLB(p *plan.ProvisionPlan, out io.Writer, opts ConvertOptions) error {
	ctx := appcontext.Context()

	llbState, image, err := ConvertPlanToLLB(p, opts)
	if err != nil {
		return fmt.Errorf("error converting plan to LLB: %w", err)
	}

	imageBytes, err := json.Marshal(image)
	if err != nil {
		return fmt.Errorf("error marshalling image config: %w", err)
	}

	log.Debugf("Image config: %+v", image)

	st, err := llbState.WithImageConfig(imageBytes)
	if err != nil {
		return fmt.Errorf("error setting image config: %w", err)
	}

	dt, err := st.Marshal(ctx, llb.Platform(image.Platform))
	if err != nil {
		return fmt.Errorf("error marshaling LLB state: %w", err)
	}

	if err := llb.WriteTo(dt, out); err != nil {
		return fmt.Errorf("error writing LLB state: %w", err)
	}

	return nil
}
