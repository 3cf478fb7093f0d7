package dto

// PractitionerRequest creates or replaces a practitioner.
type PractitionerRequest struct {
	WorkingCopyRequest
	Name  string   `json:"name" validate:"required,max=200"`
	Title string   `json:"title" validate:"max=100"`
	Tags  []string `json:"tags" validate:"omitempty,dive,required,max=50"`
}

// LocationRequest creates or renames a location.
type LocationRequest struct {
	WorkingCopyRequest
	Name string `json:"name" validate:"required,max=200"`
}

// AppointmentTypeRequest creates or replaces an appointment type.
type AppointmentTypeRequest struct {
	WorkingCopyRequest
	Name                   string   `json:"name" validate:"required,max=200"`
	DurationMinutes        int      `json:"durationMinutes" validate:"required,min=1,max=1440"`
	Color                  string   `json:"color" validate:"omitempty,hexcolor"`
	AllowedPractitionerIDs []string `json:"allowedPractitionerIds" validate:"omitempty,dive,required"`
}

// BaseScheduleRequest creates or replaces a weekly availability block.
type BaseScheduleRequest struct {
	WorkingCopyRequest
	PractitionerID string `json:"practitionerId" validate:"required"`
	LocationID     string `json:"locationId" validate:"required"`
	DayOfWeek      int    `json:"dayOfWeek" validate:"min=0,max=6"`
	StartTime      string `json:"startTime" validate:"required"`
	EndTime        string `json:"endTime" validate:"required"`
}
