package diag

import (
	"fmt"
)

// Code is a stable numeric identifier for a diagnostic kind.
// Bands: Lex 1000s, Syn 2000s, Sema 3000s, Flow (workflow/agent) 3500s,
// Driver 4000s, Loader/Project 5000s.
type Code uint16

const (
	UnknownCode Code = 0

	// Lexical
	LexInfo               Code = 1000
	LexUnknownChar        Code = 1001
	LexUnterminatedString Code = 1002
	LexBadEscape          Code = 1003
	LexBadNumber          Code = 1004
	LexLoneMinus          Code = 1005

	// Syntactic
	SynInfo                          Code = 2000
	SynUnexpectedToken               Code = 2001
	SynUnexpectedTopLevel            Code = 2002
	SynExpectIdentifier              Code = 2003
	SynExpectSemicolon               Code = 2004
	SynExpectType                    Code = 2005
	SynExpectExpression              Code = 2006
	SynExpectPattern                 Code = 2007
	SynExpectPredicate               Code = 2008
	SynExpectStringLit               Code = 2009
	SynExpectNumberLit               Code = 2010
	SynUnclosedDelimiter             Code = 2011
	SynImportBadPath                 Code = 2012
	SynImportBadAlias                Code = 2013
	SynDuplicateContractBlock        Code = 2014
	SynComparisonOutsidePredicate    Code = 2015
	SynLogicalOutsidePredicate       Code = 2016
	SynWhereUnknownParam             Code = 2017

	// Semantic
	SemaInfo                    Code = 3000
	SemaDuplicateDecl           Code = 3001
	SemaUnknownType             Code = 3002
	SemaArityMismatch           Code = 3003
	SemaTypeMismatch            Code = 3004
	SemaUnknownSymbol           Code = 3005
	SemaUnknownCallTarget       Code = 3006
	SemaCallArity               Code = 3007
	SemaRecordFieldMissing      Code = 3008
	SemaRecordFieldExtra        Code = 3009
	SemaRecordFieldDuplicate    Code = 3010
	SemaMemberNotFound          Code = 3011
	SemaMatchNotExhaustive      Code = 3012
	SemaMatchBadPattern         Code = 3013
	SemaAmbiguousVariant        Code = 3014
	SemaUnknownVariant          Code = 3015
	SemaBoundNotSatisfied       Code = 3016
	SemaRedefinedVariable       Code = 3017
	SemaAssignUnknownVariable   Code = 3018
	SemaReturnTypeMismatch      Code = 3019
	SemaCapabilityShape         Code = 3020
	SemaCapabilityMissing       Code = 3021
	SemaEffectContract          Code = 3022
	SemaEffectUnknown           Code = 3023
	SemaRequiresRepeated        Code = 3024
	SemaRequiresWithoutEffects  Code = 3025
	SemaEffectsWithoutRequires  Code = 3026
	SemaIntentEmpty             Code = 3027
	SemaEnsuresBadRoot          Code = 3028
	SemaFailureBadAction        Code = 3029
	SemaEvidenceBadBlock        Code = 3030
	SemaQualifiedUnknownAlias   Code = 3031
	SemaQualifiedUnknownSymbol  Code = 3032
	SemaGenericUnknownParam     Code = 3033

	// Workflow / agent flow analyses
	FlowInfo                    Code = 3500
	FlowDuplicateStepID         Code = 3501
	FlowStepTargetUndeclared    Code = 3502
	FlowStepArgType             Code = 3503
	FlowOutputDuplicateField    Code = 3504
	FlowOutputUnboundField      Code = 3505
	FlowOutputAmbiguousBinding  Code = 3506
	FlowOutputBindType          Code = 3507
	FlowOutputMissesReturnType  Code = 3508
	FlowStateNoRules            Code = 3509
	FlowStateUnreachable        Code = 3510
	FlowStateRepeatedEdge       Code = 3511
	FlowPolicyToolConflict      Code = 3512
	FlowPolicyDenyPrecedence    Code = 3513
	FlowPolicyZeroIterations    Code = 3514
	FlowStopUnknownState        Code = 3515
	FlowStopUnreachableState    Code = 3516
	FlowClosedCycle             Code = 3517
	FlowMayNotTerminate         Code = 3518
	FlowPredicateUnknownRoot    Code = 3519
	FlowLoopRepeatedStage       Code = 3520
	FlowLoopNoStages            Code = 3521

	// Driver / tooling
	DriverInfo        Code = 4000
	DriverIO          Code = 4001
	DriverToolMissing Code = 4002
	DriverToolFailed  Code = 4003
	DriverTimeout     Code = 4004
	DriverInterp      Code = 4005

	// Loader / project
	ProjInfo           Code = 5000
	ProjFileNotFound   Code = 5001
	ProjReadFailed     Code = 5002
	ProjImportCycle    Code = 5003
	ProjAliasCollision Code = 5004
	ProjBadManifest    Code = 5005
)

func (c Code) String() string {
	return fmt.Sprintf("KX%04d", uint16(c))
}

// Band returns a coarse human-readable category for the code.
func (c Code) Band() string {
	switch {
	case c >= 5000:
		return "loader"
	case c >= 4000:
		return "driver"
	case c >= 3500:
		return "flow"
	case c >= 3000:
		return "sema"
	case c >= 2000:
		return "syntax"
	case c >= 1000:
		return "lex"
	}
	return "unknown"
}
