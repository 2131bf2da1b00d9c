package metrics

const (
	SimStepsH = "The total number of simulation steps executed"
	SimStepsN = "infusionservice_sim_steps"

	SimFallbacksH = "The total number of steps where no rule fired and the previous rate was held"
	SimFallbacksN = "infusionservice_sim_fallbacks"

	SimGlucoseH = "The current synthetic glucose reading (mg/dL)"
	SimGlucoseN = "infusionservice_sim_glucose"

	SimTrendH = "The current estimated glucose trend (mg/dL per min)"
	SimTrendN = "infusionservice_sim_trend"

	SimInfusionRateH = "The current recommended infusion rate (U/h)"
	SimInfusionRateN = "infusionservice_sim_infusion_rate"

	JournalWritesH = "The total number of evaluation entries written to the journal"
	JournalWritesN = "infusionservice_journal_writes"

	JournalWriteErrorsH = "The total number of journal write failures"
	JournalWriteErrorsN = "infusionservice_journal_write_errors"
)
