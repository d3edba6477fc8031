package quote

import (
	"testing"
	"time"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	st := fullState(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	st.RetryCount = 2

	raw, err := Encode(st)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, ok := Decode(raw)
	if !ok {
		t.Fatalf("Decode rejected %s", raw)
	}
	if got.Status != st.Status || got.CurrentStep != st.CurrentStep || got.RetryCount != 2 {
		t.Fatalf("scalars differ: %+v", got)
	}
	if *got.Lives != 3 || *got.AgeRange != "30-40" || *got.City != "Sao Paulo" || *got.PlanType != PlanApartamento {
		t.Fatalf("fields differ: %+v", got)
	}
	if !got.StartedAt.Equal(st.StartedAt) {
		t.Fatalf("startedAt differs")
	}
}

func TestEncode_NullFieldsPresent(t *testing.T) {
	raw, err := Encode(Fresh(time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	got, ok := Decode(raw)
	if !ok || got.Lives != nil || got.City != nil {
		t.Fatalf("fresh state should decode with nil fields: %+v ok=%v", got, ok)
	}
}

func TestDecode_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":             ``,
		"not json":          `{"v":1,`,
		"array":             `[]`,
		"no version":        `{"status":"collecting","currentStep":"lives","retryCount":0}`,
		"wrong version":     `{"v":2,"status":"collecting","currentStep":"lives","retryCount":0}`,
		"missing status":    `{"v":1,"currentStep":"lives","retryCount":0}`,
		"missing retry":     `{"v":1,"status":"collecting","currentStep":"lives"}`,
		"unknown status":    `{"v":1,"status":"paused","currentStep":"lives","retryCount":0}`,
		"unknown step":      `{"v":1,"status":"collecting","currentStep":"email","retryCount":0}`,
		"collecting done":   `{"v":1,"status":"collecting","currentStep":"done","retryCount":0}`,
		"confirm partial":   `{"v":1,"status":"confirming","currentStep":"confirm","retryCount":0,"lives":2}`,
		"complete at city":  `{"v":1,"status":"complete","currentStep":"city","retryCount":0}`,
		"negative retry":    `{"v":1,"status":"collecting","currentStep":"lives","retryCount":-1}`,
		"bad plan":          `{"v":1,"status":"collecting","currentStep":"lives","retryCount":0,"planType":"vip"}`,
		"wrong type":        `{"v":1,"status":"collecting","currentStep":"lives","retryCount":"0"}`,
		"plan step no city": `{"v":1,"status":"collecting","currentStep":"plan_type","retryCount":0,"lives":2,"ageRange":"30-40"}`,
		"age step no lives": `{"v":1,"status":"collecting","currentStep":"age_range","retryCount":0}`,
		"zero lives":        `{"v":1,"status":"confirming","currentStep":"confirm","retryCount":0,"lives":0,"ageRange":"30-40","city":"Curitiba","planType":"enfermaria"}`,
		"too many lives":    `{"v":1,"status":"collecting","currentStep":"age_range","retryCount":0,"lives":101}`,
		"bad age range":     `{"v":1,"status":"collecting","currentStep":"city","retryCount":0,"lives":2,"ageRange":"abc"}`,
		"inverted ages":     `{"v":1,"status":"collecting","currentStep":"city","retryCount":0,"lives":2,"ageRange":"40-30"}`,
		"unknown city":      `{"v":1,"status":"complete","currentStep":"done","retryCount":0,"lives":2,"ageRange":"30-40","city":"Atlantis","planType":"enfermaria"}`,
	}
	for name, raw := range cases {
		if s, ok := Decode([]byte(raw)); ok || s != nil {
			t.Fatalf("%s: expected rejection, got %+v", name, s)
		}
	}
}

func TestDecode_CorrectionKeepsLaterFields(t *testing.T) {
	raw := `{"v":1,"status":"collecting","currentStep":"age_range","retryCount":0,"lives":2,"city":"Curitiba","planType":"apartamento"}`
	s, ok := Decode([]byte(raw))
	if !ok || s.CurrentStep != StepAgeRange || s.AgeRange != nil {
		t.Fatalf("corrected state should decode: %+v ok=%v", s, ok)
	}
}

func TestDecode_AbandonedAnyKnownStep(t *testing.T) {
	raw := `{"v":1,"status":"abandoned","currentStep":"city","retryCount":1,"lives":2}`
	s, ok := Decode([]byte(raw))
	if !ok || s.Status != StatusAbandoned {
		t.Fatalf("abandoned state should decode: %+v", s)
	}
}

func TestState_ActiveAndAbandon(t *testing.T) {
	var nilState *State
	if nilState.Active() {
		t.Fatalf("nil is not active")
	}

	now := time.Now()
	st := Fresh(now)
	if !st.Active() {
		t.Fatalf("fresh should be active")
	}
	later := now.Add(time.Minute)
	if !st.Abandon(later) || st.Status != StatusAbandoned || !st.UpdatedAt.Equal(later.UTC()) {
		t.Fatalf("abandon failed: %+v", st)
	}
	if st.Abandon(later) {
		t.Fatalf("abandoning twice should be a no-op")
	}

	done := fullState(now)
	done.Status = StatusComplete
	done.CurrentStep = StepDone
	if done.Abandon(later) || done.Status != StatusComplete {
		t.Fatalf("complete quotes are not abandoned")
	}
}
