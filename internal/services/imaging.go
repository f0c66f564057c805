package services

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
)

// KindDICOM marks a DICOM Part 10 file
const KindDICOM = "dicom"

var dicomMagic = []byte("DICM")

// ImageInfo is the result of inspecting a selected image file
type ImageInfo struct {
	Selection models.ImageSelection
	// Prefill holds descriptor fields read from a DICOM header; nil for raster images
	Prefill *models.PatientDescriptor
}

// InspectImage checks that path is a DICOM file or a decodable raster image
func InspectImage(path string) (ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ImageInfo{}, lib.ErrFileNotFound(path)
		}
		return ImageInfo{}, lib.WrapError(lib.CategoryFileSystem, fmt.Sprintf("Cannot open %s", path), err)
	}
	defer func() { _ = f.Close() }()

	sel := models.ImageSelection{Path: path, Name: filepath.Base(path)}

	if isDICOM(f) {
		ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
		if err != nil {
			return ImageInfo{}, lib.ErrUnsupportedImage(path, err)
		}
		sel.Kind = KindDICOM
		sel.Width = intValue(ds, tag.Columns)
		sel.Height = intValue(ds, tag.Rows)
		prefill := DescriptorFromDataset(ds)
		return ImageInfo{Selection: sel, Prefill: &prefill}, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return ImageInfo{}, lib.ErrUnsupportedImage(path, err)
	}
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return ImageInfo{}, lib.ErrUnsupportedImage(path, err)
	}
	sel.Kind = format
	sel.Width = cfg.Width
	sel.Height = cfg.Height
	return ImageInfo{Selection: sel}, nil
}

// BackendImagePath maps a selected file name into the backend's shared image area
func BackendImagePath(imageRoot string, name string) string {
	return path.Join(imageRoot, path.Base(filepath.ToSlash(name)))
}

func isDICOM(r io.Reader) bool {
	preamble := make([]byte, 132)
	if _, err := io.ReadFull(r, preamble); err != nil {
		return false
	}
	return bytes.Equal(preamble[128:], dicomMagic)
}

// DescriptorFromDataset reads patient and study fields from a DICOM header.
// Fields absent from the header are left empty.
func DescriptorFromDataset(ds dicom.Dataset) models.PatientDescriptor {
	return models.PatientDescriptor{
		PatientID:   stringValue(ds, tag.PatientID),
		PatientName: formatPersonName(stringValue(ds, tag.PatientName)),
		Age:         ParseDICOMAge(stringValue(ds, tag.PatientAge)),
		Gender:      genderFromSex(stringValue(ds, tag.PatientSex)),
		StudyDate:   ParseDICOMDate(stringValue(ds, tag.StudyDate)),
		ImageType:   ModalityFromDICOM(stringValue(ds, tag.Modality)),
	}
}

func stringValue(ds dicom.Dataset, t tag.Tag) string {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem.Value == nil {
		return ""
	}
	values, ok := elem.Value.GetValue().([]string)
	if !ok || len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func intValue(ds dicom.Dataset, t tag.Tag) int {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem.Value == nil {
		return 0
	}
	values, ok := elem.Value.GetValue().([]int)
	if !ok || len(values) == 0 {
		return 0
	}
	return values[0]
}

// formatPersonName turns a PN value "Family^Given^Middle" into "Given Middle Family"
func formatPersonName(pn string) string {
	if pn == "" {
		return ""
	}
	parts := strings.Split(pn, "^")
	family := strings.TrimSpace(parts[0])
	var rest []string
	for _, p := range parts[1:] {
		if p = strings.TrimSpace(p); p != "" {
			rest = append(rest, p)
		}
	}
	if family != "" {
		rest = append(rest, family)
	}
	return strings.Join(rest, " ")
}

// ParseDICOMAge converts an AS value such as "045Y" into whole years.
// Ages given in days, weeks or months are below one year.
func ParseDICOMAge(as string) string {
	as = strings.TrimSpace(as)
	if len(as) < 2 {
		return ""
	}
	n, err := strconv.Atoi(as[:len(as)-1])
	if err != nil || n < 0 {
		return ""
	}
	switch as[len(as)-1] {
	case 'Y', 'y':
		return strconv.Itoa(n)
	case 'M', 'm', 'W', 'w', 'D', 'd':
		return "0"
	default:
		return ""
	}
}

// ParseDICOMDate converts a DA value "YYYYMMDD" into "YYYY-MM-DD"
func ParseDICOMDate(da string) string {
	da = strings.TrimSpace(da)
	if len(da) != 8 {
		return ""
	}
	if _, err := strconv.Atoi(da); err != nil {
		return ""
	}
	return da[:4] + "-" + da[4:6] + "-" + da[6:]
}

// ModalityFromDICOM maps a DICOM modality code onto the selectable modalities
func ModalityFromDICOM(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "CR", "DX", "DR", "RG":
		return models.ModalityXRay
	case "CT":
		return models.ModalityCT
	case "MR":
		return models.ModalityMRI
	default:
		return ""
	}
}

func genderFromSex(sex string) string {
	switch strings.ToUpper(sex) {
	case "M":
		return models.GenderMale
	case "F":
		return models.GenderFemale
	case "O":
		return models.GenderOther
	default:
		return ""
	}
}

// MergePrefill overlays non-empty prefill fields onto the form values
func MergePrefill(form models.PatientDescriptor, prefill *models.PatientDescriptor) models.PatientDescriptor {
	if prefill == nil {
		return form
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&form.PatientID, prefill.PatientID)
	set(&form.PatientName, prefill.PatientName)
	set(&form.Age, prefill.Age)
	set(&form.Gender, prefill.Gender)
	set(&form.StudyDate, prefill.StudyDate)
	set(&form.ImageType, prefill.ImageType)
	return form
}
