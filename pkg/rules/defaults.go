package rules

// strptr avoids taking addresses of temporaries in literal rules.
func strptr(s string) *string { return &s }

// DefaultRules returns the built-in connection rules applied when no
// configuration provides any: route every speaker EQ output into the
// hifiberry playback device.
func DefaultRules() []LinkRule {
	defaults := []LinkRule{
		{
			Name: "speakereq-to-playback",
			Source: NodeIdentifier{
				NodeName: strptr(`^speakereq.x.\.output$`),
			},
			Destination: NodeIdentifier{
				ObjectPath: strptr(`alsa:.*:sndrpihifiberry:.*:playback`),
			},
			LinkType:      Link,
			LinkAtStartup: true,
			InfoLevel:     SeverityInfo,
			ErrorLevel:    SeverityError,
		},
	}
	for i := range defaults {
		// Built-in patterns always compile.
		_ = defaults[i].Compile()
	}
	return defaults
}
