package engine

import (
	"context"
	"fmt"
)

type srcidsRequest struct {
	Srcids []string `json:"srcids"`
}

type updateRequest struct {
	Srcids []string `json:"srcids"`
	Labels []string `json:"labels"`
}

type sampleRequest struct {
	N int `json:"n"`
}

type srcidsResult struct {
	Srcids []string `json:"srcids"`
}

type probaResult struct {
	Probas [][]float64 `json:"probas"`
}

// ZodiacClient drives a remote Zodiac engine.
type ZodiacClient struct {
	client *Client
}

var _ Zodiac = (*ZodiacClient)(nil)

// NewZodiacClient opens a session and constructs the engine-side model.
func NewZodiacClient(ctx context.Context, cfg Config, init ZodiacInit) (*ZodiacClient, error) {
	client, err := NewClient("zodiac", cfg)
	if err != nil {
		return nil, err
	}
	if err := client.Call(ctx, "init", init, nil); err != nil {
		return nil, fmt.Errorf("failed to initialize zodiac: %w", err)
	}
	return &ZodiacClient{client: client}, nil
}

func (z *ZodiacClient) UpdateModel(ctx context.Context, srcids, labels []string) error {
	return z.client.Call(ctx, "update_model", updateRequest{Srcids: srcids, Labels: labels}, nil)
}

func (z *ZodiacClient) Predict(ctx context.Context, srcids []string) ([]string, error) {
	var result struct {
		Labels []string `json:"labels"`
	}
	if err := z.client.Call(ctx, "predict", srcidsRequest{Srcids: srcids}, &result); err != nil {
		return nil, err
	}
	if len(result.Labels) != len(srcids) {
		return nil, fmt.Errorf("%w: zodiac predict returned %d labels for %d srcids", ErrEngine, len(result.Labels), len(srcids))
	}
	return result.Labels, nil
}

func (z *ZodiacClient) PredictProba(ctx context.Context, srcids []string) ([][]float64, error) {
	return predictProba(ctx, z.client, srcids)
}

func (z *ZodiacClient) SelectInformativeSamples(ctx context.Context, n int) ([]string, error) {
	return sample(ctx, z.client, "select_informative_samples", n)
}

func (z *ZodiacClient) RandomLearningSrcids(ctx context.Context, n int) ([]string, error) {
	return sample(ctx, z.client, "random_learning_srcids", n)
}

func (z *ZodiacClient) NumSensorsInGray(ctx context.Context) (int, error) {
	var result struct {
		Count int `json:"count"`
	}
	if err := z.client.Call(ctx, "num_sensors_in_gray", struct{}{}, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

// ScrabbleClient drives a remote Scrabble engine.
type ScrabbleClient struct {
	client *Client
}

var _ Scrabble = (*ScrabbleClient)(nil)

func NewScrabbleClient(ctx context.Context, cfg Config, init ScrabbleInit) (*ScrabbleClient, error) {
	client, err := NewClient("scrabble", cfg)
	if err != nil {
		return nil, err
	}
	if err := client.Call(ctx, "init", init, nil); err != nil {
		return nil, fmt.Errorf("failed to initialize scrabble: %w", err)
	}
	return &ScrabbleClient{client: client}, nil
}

func (s *ScrabbleClient) UpdateModel(ctx context.Context, srcids, labels []string) error {
	return s.client.Call(ctx, "update_model", updateRequest{Srcids: srcids, Labels: labels}, nil)
}

func (s *ScrabbleClient) Predict(ctx context.Context, srcids []string) (map[string][]string, error) {
	var result struct {
		Tagsets map[string][]string `json:"tagsets"`
	}
	if err := s.client.Call(ctx, "predict", srcidsRequest{Srcids: srcids}, &result); err != nil {
		return nil, err
	}
	for _, srcid := range srcids {
		if _, ok := result.Tagsets[srcid]; !ok {
			return nil, fmt.Errorf("%w: scrabble predict has no tagsets for %s", ErrEngine, srcid)
		}
	}
	return result.Tagsets, nil
}

func (s *ScrabbleClient) PredictProba(ctx context.Context, srcids []string) ([][]float64, error) {
	return predictProba(ctx, s.client, srcids)
}

func (s *ScrabbleClient) SelectInformativeSamples(ctx context.Context, n int) ([]string, error) {
	return sample(ctx, s.client, "select_informative_samples", n)
}

func (s *ScrabbleClient) LearningSrcids(ctx context.Context) ([]string, error) {
	var result srcidsResult
	if err := s.client.Call(ctx, "learning_srcids", struct{}{}, &result); err != nil {
		return nil, err
	}
	return result.Srcids, nil
}

func (s *ScrabbleClient) ClearTrainingSamples(ctx context.Context) error {
	return s.client.Call(ctx, "clear_training_samples", struct{}{}, nil)
}

func predictProba(ctx context.Context, client *Client, srcids []string) ([][]float64, error) {
	var result probaResult
	if err := client.Call(ctx, "predict_proba", srcidsRequest{Srcids: srcids}, &result); err != nil {
		return nil, err
	}
	if len(result.Probas) != len(srcids) {
		return nil, fmt.Errorf("%w: %s predict_proba returned %d rows for %d srcids", ErrEngine, client.engine, len(result.Probas), len(srcids))
	}
	return result.Probas, nil
}

func sample(ctx context.Context, client *Client, method string, n int) ([]string, error) {
	var result srcidsResult
	if err := client.Call(ctx, method, sampleRequest{N: n}, &result); err != nil {
		return nil, err
	}
	return result.Srcids, nil
}
