package session

import (
	"fmt"
	"strconv"

	"annotationsr/pkg/errs"
)

// Resolve follows a dataset entry through the data-source graph to its file
// path: dataset -> collection source -> first file source -> fileId ->
// datasetFilePath. Every broken hop returns an error matching errs.ErrNotFound.
func Resolve(entry Dataset, m *Manifest) (string, error) {
	sources := make(map[int]DataSource, len(m.DataSources))
	for _, ds := range m.DataSources {
		// a repeated id replaces the earlier record
		sources[ds.ID] = ds
	}

	collection, ok := sources[entry.DataSourceID]
	if !ok {
		return "", notFound(fmt.Sprintf("dataSources[id=%d]", entry.DataSourceID), "no data source with this id")
	}
	if collection.Type != TypeCollection {
		return "", notFound(fmt.Sprintf("dataSources[id=%d].type", collection.ID),
			fmt.Sprintf("want %q, got %q", TypeCollection, collection.Type))
	}
	if len(collection.Sources) == 0 {
		return "", notFound(fmt.Sprintf("dataSources[id=%d].sources", collection.ID), "empty source list")
	}

	fileSourceID := collection.Sources[0]
	file, ok := sources[fileSourceID]
	if !ok {
		return "", notFound(fmt.Sprintf("dataSources[id=%d]", fileSourceID), "no data source with this id")
	}
	if file.FileID == nil {
		return "", notFound(fmt.Sprintf("dataSources[id=%d].fileId", file.ID), "file source has no fileId")
	}

	key := strconv.Itoa(*file.FileID)
	path, ok := m.DatasetFilePath[key]
	if !ok {
		return "", notFound(fmt.Sprintf("datasetFilePath[%q]", key), "no path for file id")
	}
	return path, nil
}

// ResolveByID resolves the dataset with the given id
func ResolveByID(datasetID string, m *Manifest) (string, error) {
	entry, ok := m.Dataset(datasetID)
	if !ok {
		return "", notFound(fmt.Sprintf("datasets[id=%q]", datasetID), "no dataset with this id")
	}
	return Resolve(entry, m)
}

// ResolveAll resolves every dataset; the map is keyed by dataset id and
// unresolvable datasets are reported in the error slice, in manifest order
func ResolveAll(m *Manifest) (map[string]string, []error) {
	paths := make(map[string]string, len(m.Datasets))
	var failures []error
	for _, d := range m.Datasets {
		path, err := Resolve(d, m)
		if err != nil {
			failures = append(failures, fmt.Errorf("dataset %s: %w", d.ID, err))
			continue
		}
		paths[d.ID] = path
	}
	return paths, failures
}

func notFound(path, message string) error {
	return errs.NewNotFound("session", path, message)
}
