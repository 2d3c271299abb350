package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nanobanana/nanobanana-api/internal/llm"
)

// ErrNoGenerationOutput indicates the model returned neither text nor
// an image for the request.
var ErrNoGenerationOutput = errors.New("model returned no output")

// GenerationParams is one image edit or creation request.
type GenerationParams struct {
	UserID         string
	Prompt         string
	Mode           string
	SourceImageURL string
}

// GenerationOutput is the outcome of a generation request.
type GenerationOutput struct {
	Text             string
	GeneratedImage   string
	GenerationID     string
	StoredURL        string
	CreditsRemaining int64
}

// GenerationService fronts the image model. Credits are consumed
// before the provider call; a failed call refunds the same amount so
// the user never pays for a generation that produced nothing.
type GenerationService struct {
	llm     *llm.OpenRouterClient
	ledger  *LedgerService
	storage *StorageService
	cost    int64
	logger  *slog.Logger
}

// NewGenerationService creates a new generation service. storage may be
// nil when object storage is not configured.
func NewGenerationService(client *llm.OpenRouterClient, ledger *LedgerService, storage *StorageService, cost int64, logger *slog.Logger) *GenerationService {
	return &GenerationService{llm: client, ledger: ledger, storage: storage, cost: cost, logger: logger}
}

// Generate runs one generation request for a user.
func (s *GenerationService) Generate(ctx context.Context, params GenerationParams) (*GenerationOutput, error) {
	account, err := s.ledger.Consume(ctx, params.UserID, s.cost, generationDescription(params.Mode))
	if err != nil {
		return nil, err
	}

	result, err := s.llm.Generate(ctx, params.Prompt, params.SourceImageURL)
	if err != nil {
		s.refund(params.UserID, "refund: generation failed")
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	if result.Text == "" && !result.HasImage() {
		s.refund(params.UserID, "refund: model returned no output")
		return nil, ErrNoGenerationOutput
	}

	output := &GenerationOutput{
		Text:             result.Text,
		GeneratedImage:   result.Image,
		GenerationID:     result.GenerationID,
		CreditsRemaining: account.Available(),
	}

	if s.storage != nil && s.storage.IsEnabled() && result.HasImage() {
		storedURL, err := s.storage.StoreImage(ctx, params.UserID, result.Image)
		if err != nil {
			// Storage is best effort, the caller still gets the inline image.
			s.logger.Warn("failed to store generated image",
				"user_id", params.UserID,
				"error", err,
			)
		} else {
			output.StoredURL = storedURL
		}
	}

	s.logger.Info("generation completed",
		"user_id", params.UserID,
		"mode", params.Mode,
		"has_image", result.HasImage(),
		"credits_remaining", output.CreditsRemaining,
	)
	return output, nil
}

// refund compensates a consumed generation charge. It runs on a fresh
// context so a canceled request still gets its credit back.
func (s *GenerationService) refund(userID, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), refundTimeout)
	defer cancel()

	if _, err := s.ledger.Grant(ctx, userID, s.cost, reason); err != nil {
		s.logger.Error("failed to refund generation charge",
			"user_id", userID,
			"amount", s.cost,
			"error", err,
		)
	}
}

func generationDescription(mode string) string {
	if mode == "create" {
		return "image creation"
	}
	return "image edit"
}
