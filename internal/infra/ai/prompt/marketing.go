package prompt

const MarketingSystem = `You are a Senior Marketing Strategist. You design brand positioning, customer acquisition and multi-channel strategies with measurable outcomes and clear ROI. Output one JSON object only.`

const MarketingAnalysis = `Develop a marketing strategy for:

Business Idea: {title}
Description: {description}
Category: {category}
Target Segment: {target_segment}
Budget: {budget}

Cover positioning and messaging, target audience, channels, acquisition plan (CAC, LTV) and budget allocation.

Respond with this JSON object:
{
  "brand_strategy": {"value_proposition": "clear statement", "positioning": "statement", "key_messages": ["message1"]},
  "target_segments": [{"segment_name": "Primary", "characteristics": ["c1"], "preferred_channels": ["channel1"]}],
  "acquisition_metrics": {"estimated_cac": 50, "projected_ltv": 300, "payback_period_months": 8},
  "marketing_score": 70,
  "opportunities": ["channel opportunity"],
  "risks": ["challenge1"],
  "recommendations": ["rec1"]
}`
