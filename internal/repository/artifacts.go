package repository

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/healthcatchers/iris/internal/domain"
	"github.com/healthcatchers/iris/internal/model"
)

// ImportFile validates the artifact at path and stores it under the name and
// version it declares.
func ImportFile(ctx context.Context, repo domain.ArtifactRepository, path string) (domain.ArtifactInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ArtifactInfo{}, fmt.Errorf("read artifact: %w", err)
	}
	e, err := model.Parse(data)
	if err != nil {
		return domain.ArtifactInfo{}, err
	}
	info := e.Info()
	if info.Name == "" || info.Version == "" {
		return domain.ArtifactInfo{}, fmt.Errorf("%w: artifact must declare a name and version", ErrInvalidInput)
	}

	err = repo.SaveArtifact(ctx, &domain.StoredArtifact{
		Name:     info.Name,
		Version:  info.Version,
		Checksum: info.Checksum,
		Payload:  data,
	})
	if err != nil {
		return domain.ArtifactInfo{}, err
	}
	info.Source = path
	return info, nil
}

// LoadEnsemble loads name from the repository, at version or the latest when
// version is empty. Every failure is a configuration error.
func LoadEnsemble(ctx context.Context, repo domain.ArtifactRepository, name, version string) (*model.Ensemble, error) {
	var stored *domain.StoredArtifact
	var err error
	if version == "" {
		stored, err = repo.LatestArtifact(ctx, name)
	} else {
		stored, err = repo.GetArtifact(ctx, name, version)
	}
	if errors.Is(err, ErrNotFound) {
		return nil, domain.NewConfigurationError("model", fmt.Errorf("artifact %s@%s not found", name, orLatest(version)))
	}
	if err != nil {
		return nil, domain.NewConfigurationError("model", err)
	}

	e, err := model.Parse(stored.Payload)
	if err != nil {
		return nil, err
	}
	if e.Info().Checksum != stored.Checksum {
		return nil, domain.NewConfigurationError("model", fmt.Errorf("artifact %s@%s fails its checksum", stored.Name, stored.Version))
	}
	return e.WithSource(fmt.Sprintf("repository:%s@%s", stored.Name, stored.Version)), nil
}

func orLatest(version string) string {
	if version == "" {
		return "latest"
	}
	return version
}
