package coordinatornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
)

// Classify fails the whole turn when the classifier fails.
func Classify(ctx context.Context, in *GraphState, classifier contractx.Classifier) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	intent, err := classifier.Classify(ctx, contractx.ClassifyRequest{
		Message:    in.Request.Message,
		LanguageID: in.Header.LanguageID,
		Outline:    in.Outline,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", in.Session.SessionID).
		Str("intent", intent.PrimaryIntent).
		Strs("sequence", intent.OrderedIntents).
		Bool("multi_intent", intent.IsMultiIntent).
		Msg("intent classified")

	in.Intent = intent
	return in, nil
}

// NextAfterClassify picks the branch taken after classification.
func NextAfterClassify(in *GraphState) (string, error) {
	if in == nil {
		return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Intent.IsNonShopping() {
		return NodeRespondNonShopping, nil
	}
	return NodeRunSequence, nil
}
