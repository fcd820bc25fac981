package backend

// automaticCandidates are the backends tried for PreferenceAuto, in order.
var automaticCandidates = []Preference{PreferenceInotify, PreferenceDnotify}
