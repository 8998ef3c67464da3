package risks

// mitigationTable maps each risk type to its standing mitigation strategies.
var mitigationTable = map[RiskType][]string{
	RiskResolutionMismatch: {
		"Agree on an explicit conflict-resolution protocol before disputes arise.",
		"Pair assertive members with a facilitator role during heated discussions.",
	},
	RiskEmpathyGap: {
		"Establish feedback norms that require acknowledging the other perspective first.",
		"Rotate a check-in role so lower-empathy members practice perspective-taking.",
	},
	RiskEnergyPolarization: {
		"Alternate high-energy and low-key group formats.",
		"Let members opt into activities at their own energy level without penalty.",
	},
	RiskCommunicationClash: {
		"Set a shared convention for how critical feedback is phrased and delivered.",
		"Summarize decisions in writing so style differences do not distort outcomes.",
	},
	RiskValueConflict: {
		"Surface the value tension openly and frame decisions as trade-offs, not sides.",
		"Rotate which value takes priority across comparable decisions.",
	},
	RiskParticipationDivergence: {
		"Make participation expectations explicit and revisit them periodically.",
		"Offer asynchronous ways to contribute for lower-participation members.",
	},
	RiskLeadershipContention: {
		"Assign clear decision ownership per area instead of a single group leader.",
		"Use a rotating chair for group-wide decisions.",
	},
	RiskWorkStyleFriction: {
		"Split work into exploration and execution phases with explicit handoffs.",
		"Let each style lead the phase where it is strongest.",
	},
}

// genericMitigations is the fallback for unrecognized risk types.
var genericMitigations = []string{
	"Discuss the friction area openly in a low-stakes setting.",
	"Agree on a small experiment to reduce the risk and review it together.",
}

func mitigationsFor(riskType RiskType) []string {
	if strategies, ok := mitigationTable[riskType]; ok {
		return strategies
	}
	return genericMitigations
}
