package prompt

const RiskSystem = `You are a Senior Risk Analyst. You identify, quantify and mitigate market, operational, financial, regulatory and technology risks, and propose actionable mitigations. Output one JSON object only.`

const RiskAnalysis = `Conduct a risk analysis for:

Business Idea: {title}
Description: {description}
Category: {category}
Target Segment: {target_segment}

Analyze market, operational, financial, regulatory and technology risks. risk_score is a viability score: higher means lower overall risk.

Respond with this JSON object:
{
  "risk_assessment": {"overall_risk_level": "LOW/MEDIUM/HIGH", "risk_score": 60},
  "risks": [{"risk": "description", "category": "market", "probability": 0.3, "impact": "HIGH"}],
  "mitigation_strategies": {"immediate_actions": ["action1"], "contingency_plans": ["plan1"]},
  "opportunities": ["risk-adjusted upside"],
  "red_flags": ["flag1"]
}`
