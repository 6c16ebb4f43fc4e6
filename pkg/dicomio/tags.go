// Package dicomio serializes report documents to DICOM Part-10 Enhanced SR
// instances and reads back the private metadata channel stored in them.
package dicomio

import "github.com/suyashkumar/dicom/pkg/tag"

// attr is a standard attribute with the VR it is written with
type attr struct {
	tag tag.Tag
	vr  string
}

func at(group, element uint16, vr string) attr {
	return attr{tag: tag.Tag{Group: group, Element: element}, vr: vr}
}

// SOP common, general study/series/equipment and patient modules
var (
	attrSpecificCharacterSet   = at(0x0008, 0x0005, "CS")
	attrSOPClassUID            = at(0x0008, 0x0016, "UI")
	attrSOPInstanceUID         = at(0x0008, 0x0018, "UI")
	attrStudyDate              = at(0x0008, 0x0020, "DA")
	attrContentDate            = at(0x0008, 0x0023, "DA")
	attrStudyTime              = at(0x0008, 0x0030, "TM")
	attrContentTime            = at(0x0008, 0x0033, "TM")
	attrAccessionNumber        = at(0x0008, 0x0050, "SH")
	attrModality               = at(0x0008, 0x0060, "CS")
	attrManufacturer           = at(0x0008, 0x0070, "LO")
	attrReferringPhysicianName = at(0x0008, 0x0090, "PN")
	attrSeriesDescription      = at(0x0008, 0x103E, "LO")
	attrManufacturerModelName  = at(0x0008, 0x1090, "LO")
	attrPatientName            = at(0x0010, 0x0010, "PN")
	attrPatientID              = at(0x0010, 0x0020, "LO")
	attrPatientBirthDate       = at(0x0010, 0x0030, "DA")
	attrPatientSex             = at(0x0010, 0x0040, "CS")
	attrDeviceSerialNumber     = at(0x0018, 0x1000, "LO")
	attrSoftwareVersions       = at(0x0018, 0x1020, "LO")
	attrContentQualification   = at(0x0018, 0x9004, "CS")
	attrStudyInstanceUID       = at(0x0020, 0x000D, "UI")
	attrSeriesInstanceUID      = at(0x0020, 0x000E, "UI")
	attrStudyID                = at(0x0020, 0x0010, "SH")
	attrSeriesNumber           = at(0x0020, 0x0011, "IS")
	attrInstanceNumber         = at(0x0020, 0x0013, "IS")
	attrImageComments          = at(0x0020, 0x4000, "LT")
)

// Code sequence macro and SOP references
var (
	attrCodeValue                = at(0x0008, 0x0100, "SH")
	attrCodingSchemeDesignator   = at(0x0008, 0x0102, "SH")
	attrCodingSchemeVersion      = at(0x0008, 0x0103, "SH")
	attrCodeMeaning              = at(0x0008, 0x0104, "LO")
	attrMappingResource          = at(0x0008, 0x0105, "CS")
	attrReferencedSeriesSequence = at(0x0008, 0x1115, "SQ")
	attrReferencedSOPClassUID    = at(0x0008, 0x1150, "UI")
	attrReferencedSOPInstanceUID = at(0x0008, 0x1155, "UI")
	attrReferencedSOPSequence    = at(0x0008, 0x1199, "SQ")
)

// SR document general and content modules
var (
	attrMeasurementUnitsCodeSequence   = at(0x0040, 0x08EA, "SQ")
	attrRelationshipType               = at(0x0040, 0xA010, "CS")
	attrValueType                      = at(0x0040, 0xA040, "CS")
	attrConceptNameCodeSequence        = at(0x0040, 0xA043, "SQ")
	attrContinuityOfContent            = at(0x0040, 0xA050, "CS")
	attrPersonName                     = at(0x0040, 0xA123, "PN")
	attrUID                            = at(0x0040, 0xA124, "UI")
	attrTextValue                      = at(0x0040, 0xA160, "UT")
	attrConceptCodeSequence            = at(0x0040, 0xA168, "SQ")
	attrMeasuredValueSequence          = at(0x0040, 0xA300, "SQ")
	attrNumericValue                   = at(0x0040, 0xA30A, "DS")
	attrPerformedProcedureCodeSequence = at(0x0040, 0xA372, "SQ")
	attrEvidenceSequence               = at(0x0040, 0xA375, "SQ")
	attrCompletionFlag                 = at(0x0040, 0xA491, "CS")
	attrVerificationFlag               = at(0x0040, 0xA493, "CS")
	attrContentTemplateSequence        = at(0x0040, 0xA504, "SQ")
	attrContentSequence                = at(0x0040, 0xA730, "SQ")
	attrTemplateIdentifier             = at(0x0040, 0xDB00, "CS")
	attrGraphicData                    = at(0x0070, 0x0022, "FL")
	attrGraphicType                    = at(0x0070, 0x0023, "CS")
)
