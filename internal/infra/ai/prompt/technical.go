package prompt

const TechnicalSystem = `You are a Senior Technical Lead with 15+ years in software architecture, system design and delivery. Assess feasibility, architecture, timeline and integration risk realistically. Output one JSON object only.`

const TechnicalAnalysis = `Conduct a technical analysis for:

Business Idea: {title}
Description: {description}
Category: {category}
Estimated Budget: {budget}

Cover technical feasibility, recommended architecture, development estimation and technology requirements.

Respond with this JSON object:
{
  "technical_feasibility": {"complexity_level": "LOW/MEDIUM/HIGH", "implementation_risk": "LOW/MEDIUM/HIGH", "feasibility_score": 70},
  "recommended_architecture": {"architecture_type": "description", "core_technologies": ["tech1"]},
  "development_plan": {"mvp_timeline_months": 6, "team_size": 5},
  "technical_score": 70,
  "risks": ["roadblock1"],
  "opportunities": ["leverage1"],
  "recommendations": ["rec1"]
}`
