package domain

// MoodleUser is the remote identity as returned by
// core_user_get_users_by_field.
type MoodleUser struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Fullname    string `json:"fullname"`
	Email       string `json:"email"`
	IDNumber    string `json:"idnumber"`
	Suspended   bool   `json:"suspended"`
	Confirmed   bool   `json:"confirmed"`
	Address     string `json:"address,omitempty"`
	Phone1      string `json:"phone1,omitempty"`
	Phone2      string `json:"phone2,omitempty"`
	Department  string `json:"department,omitempty"`
	Institution string `json:"institution,omitempty"`
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
}

// MoodleWarning is a non-fatal notice attached to a core_user_update_users
// response.
type MoodleWarning struct {
	Item        string `json:"item"`
	ItemID      int64  `json:"itemid"`
	WarningCode string `json:"warningcode"`
	Message     string `json:"message"`
}

// MoodleUpdateResult describes a completed remote update, including any
// benign warnings the remote attached.
type MoodleUpdateResult struct {
	UserID        int64           `json:"user_id"`
	UpdatedFields []string        `json:"updated_fields"`
	Warnings      []MoodleWarning `json:"warnings,omitempty"`
}
