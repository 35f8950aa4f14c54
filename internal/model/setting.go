package model

// Keys of the system_settings rows the dashboard reads.
const (
    SettingBaseResourceCount      = "base_resource_count"
    SettingBaseStudentReach       = "base_student_reach"
    SettingTargetContributionGoal = "target_contribution_goal"
)

// Setting is one key/value row of system_settings.
type Setting struct {
    Key   string `json:"key"`
    Value string `json:"value"`
}
