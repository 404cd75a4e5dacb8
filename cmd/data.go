package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/botanica/internal/formatter"
	"github.com/desertthunder/botanica/internal/models"
	"github.com/desertthunder/botanica/internal/shared"
	"github.com/urfave/cli/v3"
)

// DataShow loads and prints the main data record.
func (r *Runner) DataShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.ctrl.LoadMainData(ctx); err != nil {
		return r.failed(err)
	}

	data := r.ctrl.Snapshot().MainData
	if cmd.Bool("json") {
		return r.writeJSON(data, true)
	}

	_, err := r.output.Write(formatter.MainDataToText(data))
	return err
}

// DataSave applies --file and then --set values on top of the current record and saves the result.
//
// The record is always sent whole, so fields that were not given keep their current values.
func (r *Runner) DataSave(ctx context.Context, cmd *cli.Command) error {
	updates := models.MainData{}

	if path := cmd.String("file"); path != "" {
		fromFile, err := readMainDataFile(path)
		if err != nil {
			return err
		}
		for k, v := range fromFile {
			updates[k] = v
		}
	}

	for _, pair := range cmd.StringSlice("set") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("%w: --set expects key=value, got %q", shared.ErrInvalidArgument, pair)
		}
		updates[key] = value
	}

	if len(updates) == 0 {
		return fmt.Errorf("%w: nothing to save, pass --set key=value or --file", shared.ErrMissingArgument)
	}
	for key := range updates {
		if !models.IsMainDataField(key) {
			return fmt.Errorf("%w: unknown field %q", shared.ErrInvalidArgument, key)
		}
	}

	if err := r.ctrl.LoadMainData(ctx); err != nil {
		return r.failed(err)
	}

	data := r.ctrl.Snapshot().MainData
	for k, v := range updates {
		data[k] = v
	}

	r.logger.Info("saving main data", "fields", len(updates))
	if err := r.ctrl.SaveMainData(ctx, data); err != nil {
		return r.failed(err)
	}

	return r.writePlain("✓ %s\n", r.ctrl.Snapshot().Status)
}

// readMainDataFile reads a flat JSON object of field values.
func readMainDataFile(path string) (models.MainData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: %s is not a JSON object: %v", shared.ErrInvalidInput, path, err)
	}

	out := make(models.MainData, len(obj))
	for k, v := range obj {
		if !models.IsMainDataField(k) {
			return nil, fmt.Errorf("%w: unknown field %q in %s", shared.ErrInvalidArgument, k, path)
		}
		out[k] = models.NormalizeMainData(map[string]any{k: v})[k]
	}
	return out, nil
}
