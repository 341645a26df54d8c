package signatures

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/webinspectra/go-webinspectra/internal/models"
)

//go:embed data
var embeddedData embed.FS

// categoriesFile is the reserved file name for category metadata; every
// other .json/.yaml file in a database directory holds signatures.
const categoriesFile = "categories"

// Default returns a Store built from the embedded signature database.
func Default(log *logrus.Logger) (*Store, error) {
	sub, err := fs.Sub(embeddedData, "data")
	if err != nil {
		return nil, err
	}
	return Load(sub, log)
}

// LoadDir builds a Store from a signature database directory on disk.
func LoadDir(dir string, log *logrus.Logger) (*Store, error) {
	return Load(os.DirFS(dir), log)
}

// Load builds a Store from a filesystem holding categories.(json|yaml)
// plus any number of signature files. Signature files are merged in
// lexical order; a name appearing twice keeps the last definition.
func Load(fsys fs.FS, log *logrus.Logger) (*Store, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, &FormatError{Err: fmt.Errorf("read database: %w", err)}
	}

	var sigFiles []string
	var catFile string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := path.Ext(name)
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		if strings.TrimSuffix(name, ext) == categoriesFile {
			catFile = name
			continue
		}
		sigFiles = append(sigFiles, name)
	}
	if len(sigFiles) == 0 {
		return nil, &FormatError{Err: fmt.Errorf("no signature files found")}
	}
	sort.Strings(sigFiles)

	signatures := map[string]models.Signature{}
	for _, name := range sigFiles {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, &FormatError{Err: fmt.Errorf("read %s: %w", name, err)}
		}
		var chunk map[string]models.Signature
		if err := decode(name, data, &chunk); err != nil {
			return nil, &FormatError{Err: fmt.Errorf("parse %s: %w", name, err)}
		}
		for sigName, sig := range chunk {
			signatures[sigName] = sig
		}
	}

	var categories map[int]models.Category
	if catFile != "" {
		data, err := fs.ReadFile(fsys, catFile)
		if err != nil {
			return nil, &FormatError{Err: fmt.Errorf("read %s: %w", catFile, err)}
		}
		if categories, err = parseCategories(catFile, data); err != nil {
			return nil, &FormatError{Err: fmt.Errorf("parse %s: %w", catFile, err)}
		}
	}

	return New(signatures, categories, log)
}

// FromJSON builds a Store from raw signature and category documents, for
// callers that carry their own ruleset. categoriesData may be nil.
func FromJSON(signaturesData, categoriesData []byte, log *logrus.Logger) (*Store, error) {
	var signatures map[string]models.Signature
	if err := json.Unmarshal(signaturesData, &signatures); err != nil {
		return nil, &FormatError{Err: fmt.Errorf("parse signatures: %w", err)}
	}
	var categories map[int]models.Category
	if len(categoriesData) > 0 {
		var err error
		if categories, err = parseCategories("categories.json", categoriesData); err != nil {
			return nil, &FormatError{Err: err}
		}
	}
	return New(signatures, categories, log)
}

// decode picks the unmarshaler from the file extension.
func decode(name string, data []byte, v interface{}) error {
	if ext := path.Ext(name); ext == ".yaml" || ext == ".yml" {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

// parseCategories reads the category table. Ids are written as string
// keys in the database files.
func parseCategories(name string, data []byte) (map[int]models.Category, error) {
	var raw map[string]models.Category
	if err := decode(name, data, &raw); err != nil {
		return nil, err
	}
	categories := make(map[int]models.Category, len(raw))
	for key, cat := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("category id %q is not numeric", key)
		}
		categories[id] = cat
	}
	return categories, nil
}
