package models

import "time"

// PersonView is the identity and description block shared by both report
// responses. The reporter's contact details are never returned.
type PersonView struct {
	Name                string   `json:"name"`
	DateOfBirth         string   `json:"dateOfBirth,omitempty"`
	TRN                 string   `json:"trn,omitempty"`
	NIN                 string   `json:"nin,omitempty"`
	Passport            string   `json:"passport,omitempty"`
	DriverLicense       string   `json:"driverLicense,omitempty"`
	Height              string   `json:"height,omitempty"`
	Weight              string   `json:"weight,omitempty"`
	SkinTone            string   `json:"skinTone,omitempty"`
	HairColor           string   `json:"hairColor,omitempty"`
	DistinctiveFeatures string   `json:"distinctiveFeatures,omitempty"`
	PhotoIDs            []string `json:"photoIds"`
}

type MissingPersonResponse struct {
	ID string `json:"id"`
	PersonView
	LastKnownLocationParish string    `json:"lastKnownLocationParish"`
	LastKnownLocationCity   string    `json:"lastKnownLocationCity,omitempty"`
	Status                  string    `json:"status"`
	CreatedAt               time.Time `json:"createdAt"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

type FoundPersonResponse struct {
	ID string `json:"id"`
	PersonView
	FoundLocationParish       string    `json:"foundLocationParish"`
	FoundLocationCity         string    `json:"foundLocationCity,omitempty"`
	ReferencedMissingPersonID string    `json:"referencedMissingPersonId,omitempty"`
	Status                    string    `json:"status"`
	CreatedAt                 time.Time `json:"createdAt"`
	UpdatedAt                 time.Time `json:"updatedAt"`
}

// CreatedResponse is returned by both intake endpoints.
type CreatedResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type MissingListResponse struct {
	Reports []MissingPersonResponse `json:"reports"`
}

type FoundListResponse struct {
	Reports []FoundPersonResponse `json:"reports"`
}

func personView(i Identity, d Description, photos []string) PersonView {
	return PersonView{
		Name:                i.Name,
		DateOfBirth:         i.DateOfBirth,
		TRN:                 i.TRN,
		NIN:                 i.NIN,
		Passport:            i.Passport,
		DriverLicense:       i.DriverLicense,
		Height:              d.Height,
		Weight:              d.Weight,
		SkinTone:            d.SkinTone,
		HairColor:           d.HairColor,
		DistinctiveFeatures: d.DistinctiveFeatures,
		PhotoIDs:            append([]string{}, photos...),
	}
}

func ToMissingResponse(m *MissingPerson) MissingPersonResponse {
	return MissingPersonResponse{
		ID:                      m.ID.String(),
		PersonView:              personView(m.Identity, m.Description, m.PhotoIDs),
		LastKnownLocationParish: m.LastKnownLocation.Parish.String(),
		LastKnownLocationCity:   m.LastKnownLocation.City,
		Status:                  m.Status.String(),
		CreatedAt:               m.CreatedAt,
		UpdatedAt:               m.UpdatedAt,
	}
}

func ToFoundResponse(f *FoundPerson) FoundPersonResponse {
	resp := FoundPersonResponse{
		ID:                  f.ID.String(),
		PersonView:          personView(f.Identity, f.Description, f.PhotoIDs),
		FoundLocationParish: f.FoundLocation.Parish.String(),
		FoundLocationCity:   f.FoundLocation.City,
		Status:              f.Status.String(),
		CreatedAt:           f.CreatedAt,
		UpdatedAt:           f.UpdatedAt,
	}
	if f.ReferencedMissingPersonID != nil {
		resp.ReferencedMissingPersonID = f.ReferencedMissingPersonID.String()
	}
	return resp
}

func ToMissingListResponse(reports []*MissingPerson) MissingListResponse {
	out := MissingListResponse{Reports: make([]MissingPersonResponse, 0, len(reports))}
	for _, r := range reports {
		out.Reports = append(out.Reports, ToMissingResponse(r))
	}
	return out
}

func ToFoundListResponse(reports []*FoundPerson) FoundListResponse {
	out := FoundListResponse{Reports: make([]FoundPersonResponse, 0, len(reports))}
	for _, r := range reports {
		out.Reports = append(out.Reports, ToFoundResponse(r))
	}
	return out
}
