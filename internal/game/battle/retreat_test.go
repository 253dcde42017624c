package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mitchelldurbincs/wargame/internal/testutil"
)

func TestRetreatPolicies(t *testing.T) {
	f := testutil.NewForces()
	mixed := f.Group(t, "Germans", "infantry", 2, "fighter", 1)
	airOnly := f.Group(t, "Germans", "fighter", 2, "factory", 1)
	def := f.Group(t, "Russians", "infantry", 3)

	tests := []struct {
		name   string
		policy RetreatPolicy
		state  RetreatState
		want   bool
	}{
		{"never", NeverRetreat{}, RetreatState{Round: 9, Attacker: mixed, Defender: def, Rules: f.Rules}, false},
		{"before round", RetreatAfterRound{Round: 3}, RetreatState{Round: 2, Attacker: mixed, Defender: def, Rules: f.Rules}, false},
		{"at round", RetreatAfterRound{Round: 3}, RetreatState{Round: 3, Attacker: mixed, Defender: def, Rules: f.Rules}, true},
		{"round disabled", RetreatAfterRound{}, RetreatState{Round: 3, Attacker: mixed, Defender: def, Rules: f.Rules}, false},
		{"units above limit", RetreatWhenUnitsLeft{Units: 2}, RetreatState{Round: 1, Attacker: mixed, Defender: def, Rules: f.Rules}, false},
		{"units at limit", RetreatWhenUnitsLeft{Units: 3}, RetreatState{Round: 1, Attacker: mixed, Defender: def, Rules: f.Rules}, true},
		{"ground left", RetreatWhenOnlyAirLeft{}, RetreatState{Round: 1, Attacker: mixed, Defender: def, Rules: f.Rules}, false},
		{"only air", RetreatWhenOnlyAirLeft{}, RetreatState{Round: 1, Attacker: airOnly, Defender: def, Rules: f.Rules}, true},
		{"any none", AnyRetreat{NeverRetreat{}, nil}, RetreatState{Round: 1, Attacker: mixed, Defender: def, Rules: f.Rules}, false},
		{"any one", AnyRetreat{NeverRetreat{}, RetreatAfterRound{Round: 1}}, RetreatState{Round: 1, Attacker: mixed, Defender: def, Rules: f.Rules}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.ShouldRetreat(tt.state))
		})
	}
}
