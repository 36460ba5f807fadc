package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/campus-admin-agent/internal/tools"
)

// Profile scopes an agent to a subset of tool groups with its own instructions.
type Profile struct {
	Name         string
	SystemPrompt string
	Groups       []string
}

const basePrompt = "You are a Campus Admin Assistant. Use the available tools to answer; never invent student records or campus facts. " +
	"Tool results are JSON envelopes with success, data, error and code. When success is false, explain the error plainly to the user."

// Built-in profiles.
var (
	AdminProfile = Profile{
		Name: "admin",
		SystemPrompt: basePrompt + " You handle student management, campus analytics, campus information and student notifications. " +
			"Confirm which student and field are meant before changing or deleting data when the request is ambiguous.",
		Groups: []string{tools.GroupStudentManagement, tools.GroupCampusAnalytics, tools.GroupCampusInfo, tools.GroupNotifications},
	}

	StudentsProfile = Profile{
		Name: "students",
		SystemPrompt: basePrompt + " You manage student records: adding, retrieving, updating, deleting and listing students. " +
			"Student ids and emails must be unique. Report clearly whether each operation succeeded.",
		Groups: []string{tools.GroupStudentManagement, tools.GroupNotifications},
	}

	AnalyticsProfile = Profile{
		Name: "analytics",
		SystemPrompt: basePrompt + " You provide campus analytics: totals, department distribution, recent onboarding and weekly activity. " +
			"Summarise the numbers concisely.",
		Groups: []string{tools.GroupCampusAnalytics},
	}

	CampusInfoProfile = Profile{
		Name: "campus_info",
		SystemPrompt: basePrompt + " You answer questions about campus facilities, opening hours, events, programs and policies. " +
			"Use retrieve_info for anything beyond the fixed timetables and ground the answer in the passages it returns. " +
			"If no relevant information is found, say so clearly instead of guessing.",
		Groups: []string{tools.GroupCampusInfo},
	}
)

var profiles = map[string]Profile{
	AdminProfile.Name:      AdminProfile,
	StudentsProfile.Name:   StudentsProfile,
	AnalyticsProfile.Name:  AnalyticsProfile,
	CampusInfoProfile.Name: CampusInfoProfile,
}

// LookupProfile resolves a profile by name. An empty name selects the admin profile.
func LookupProfile(name string) (Profile, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return AdminProfile, nil
	}
	profile, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown agent profile %q (available: %s)", name, strings.Join(ProfileNames(), ", "))
	}
	return profile, nil
}

// ProfileNames lists the built-in profile names.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
